// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	ExtensionsDirNotFoundId
	ExtensionNotFoundId
	MergeFailedId
	UnmergeFailedId
	DepmodFailedId
	ToolNotFoundId
	MountFailedId
	UnmountFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // manual pages of the tools involved
}

func (i *Issue) Id() Id {
	return i.id
}

// Render renders the issue page with glamour using the given style
// ("dark", "light", "notty" or a JSON style path).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

const manBase = "https://www.freedesktop.org/software/systemd/man/latest/"

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

avocadoctl reads ` + "`/etc/avocado/avocadoctl.conf`" + ` (TOML) unless ` + "`--config`" + ` is given.

## Things you can try:
- Check the TOML syntax of the file
- Mutable modes must be one of: no, auto, yes, import, ephemeral, ephemeral-import
- Show the effective configuration:
~~~
$ avocadoctl config show
~~~`,
	}

	extensionsDirNotFoundIssue = &Issue{
		id: ExtensionsDirNotFoundId,
		mdMsg: `
# Extensions directory not found!

The directory holding extension images does not exist.

## Things you can try:
- Create ` + "`/var/lib/avocado/extensions`" + `
- Point ` + "`avocado.ext.dir`" + ` in the config file at the right place
- Override it for one run with ` + "`AVOCADO_EXTENSIONS_PATH`",
	}

	extensionNotFoundIssue = &Issue{
		id: ExtensionNotFoundId,
		mdMsg: `
# Extension not found!

An extension is either a directory or a ` + "`.raw`" + ` image in the extensions directory.

## Things you can try:
- List available extensions:
~~~
$ avocadoctl list
~~~
- Check the spelling of the extension name (without the ` + "`.raw`" + ` suffix)`,
	}

	mergeFailedIssue = &Issue{
		id: MergeFailedId,
		mdMsg: `
# Failed to merge extensions!

` + "`systemd-sysext`" + ` or ` + "`systemd-confext`" + ` refused to merge the extension set.

## Things you can try:
- Inspect the current state:
~~~
$ systemd-sysext status
$ systemd-confext status
~~~
- Verify each extension ships a matching ` + "`extension-release.<name>`" + ` file
- Run ` + "`avocadoctl refresh`" + ` after fixing the extension set`,
		extLinks: []HttpLink{manBase + "systemd-sysext.html"},
	}

	unmergeFailedIssue = &Issue{
		id: UnmergeFailedId,
		mdMsg: `
# Failed to unmerge extensions!

The overlay could not be detached. A process may still hold files open below ` + "`/usr`" + ` or ` + "`/etc`" + `.

## Things you can try:
- Find processes using the hierarchy with ` + "`fuser -m /usr`" + `
- Retry with ` + "`avocadoctl unmerge`",
		extLinks: []HttpLink{manBase + "systemd-sysext.html"},
	}

	depmodFailedIssue = &Issue{
		id: DepmodFailedId,
		mdMsg: `
# Failed to rebuild module dependencies!

An extension requested ` + "`depmod`" + ` but the rebuild failed, so no modules were loaded.

## Things you can try:
- Run ` + "`depmod -a`" + ` manually to see the error
- Check that the extension ships modules for the running kernel (` + "`uname -r`" + `)`,
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# Required tool not found!

avocadoctl drives systemd and kmod tools that must be installed in PATH.

## Things you can try:
- Install systemd (systemd-sysext, systemd-confext, systemd-mount) and kmod
- In test mode (` + "`AVOCADO_TEST_MODE`" + `) provide ` + "`mock-<tool>`" + ` executables`,
	}

	mountFailedIssue = &Issue{
		id: MountFailedId,
		mdMsg: `
# Failed to mount HITL extension!

The NFS export for at least one extension could not be mounted.

## Things you can try:
- Check the server is reachable and exports ` + "`/<extension>`" + `
- Verify the port (default 12049) with ` + "`-p`" + `
- Inspect the transient unit:
~~~
$ systemctl status 'run-avocado-hitl-*.mount'
~~~`,
		extLinks: []HttpLink{manBase + "systemd-mount.html"},
	}

	unmountFailedIssue = &Issue{
		id: UnmountFailedId,
		mdMsg: `
# Failed to unmount HITL extension!

## Things you can try:
- Stop services that still use the extension
- Retry with ` + "`avocadoctl hitl unmount -e <extension>`",
		extLinks: []HttpLink{manBase + "systemd-mount.html"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

Merging extensions, mounting and writing unit drop-ins require root.

## Things you can try:
- Re-run the command with ` + "`sudo`",
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		extensionsDirNotFoundIssue.Id(): extensionsDirNotFoundIssue,
		extensionNotFoundIssue.Id():     extensionNotFoundIssue,
		mergeFailedIssue.Id():           mergeFailedIssue,
		unmergeFailedIssue.Id():         unmergeFailedIssue,
		depmodFailedIssue.Id():          depmodFailedIssue,
		toolNotFoundIssue.Id():          toolNotFoundIssue,
		mountFailedIssue.Id():           mountFailedIssue,
		unmountFailedIssue.Id():         unmountFailedIssue,
		permissionDeniedIssue.Id():      permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
