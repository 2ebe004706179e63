// SPDX-License-Identifier: MPL-2.0

package release

const (
	// KindUnknown is any key that is not an AVOCADO_* directive.
	KindUnknown Kind = iota
	// KindOnMerge is a command run after the extension set is merged.
	KindOnMerge
	// KindOnUnmerge is a command run before the extension set is unmerged.
	KindOnUnmerge
	// KindModprobe lists kernel modules to load after a depmod.
	KindModprobe
	// KindEnableServices lists units that depend on a HITL mount.
	KindEnableServices
)

const (
	KeyOnMerge        = "AVOCADO_ON_MERGE"
	KeyOnUnmerge      = "AVOCADO_ON_UNMERGE"
	KeyModprobe       = "AVOCADO_MODPROBE"
	KeyEnableServices = "AVOCADO_ENABLE_SERVICES"
)

// Kind is the closed set of directives avocadoctl acts on.
type Kind int

var kindKeys = map[Kind]string{
	KindOnMerge:        KeyOnMerge,
	KindOnUnmerge:      KeyOnUnmerge,
	KindModprobe:       KeyModprobe,
	KindEnableServices: KeyEnableServices,
}

// KindForKey maps a release-file key to its Kind.
func KindForKey(key string) Kind {
	switch key {
	case KeyOnMerge:
		return KindOnMerge
	case KeyOnUnmerge:
		return KindOnUnmerge
	case KeyModprobe:
		return KindModprobe
	case KeyEnableServices:
		return KindEnableServices
	default:
		return KindUnknown
	}
}

// Key returns the release-file key, or "" for KindUnknown.
func (k Kind) Key() string {
	return kindKeys[k]
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if key := k.Key(); key != "" {
		return key
	}
	return "unknown"
}

// Tokenized reports whether values of this kind are whitespace-separated
// lists. Command kinds are kept whole.
func (k Kind) Tokenized() bool {
	return k == KindModprobe || k == KindEnableServices
}
