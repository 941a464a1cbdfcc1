package histo

const (
	watchListMarker = "(WL)"
	safeListMarker  = "(SL)"
)

// ClassInfo identifies a class seen in a heap histogram. Lookups are by Name;
// the list flags are fixed when the class is first read from a dump.
type ClassInfo struct {
	Name        string `json:"name"        yaml:"name"`
	OnSafeList  bool   `json:"safeList"    yaml:"safe_list"`
	OnWatchList bool   `json:"watchList"   yaml:"watch_list"`
}

// NewClassInfo resolves the list flags for name against the given pattern sets.
// Either set may be nil.
func NewClassInfo(name string, safe, watch *PatternSet) ClassInfo {
	return ClassInfo{
		Name:        name,
		OnSafeList:  safe.Matches(name),
		OnWatchList: watch.Matches(name),
	}
}

// Prefix returns the list markers shown in front of the class name in reports,
// for example "(WL)(SL)".
func (c ClassInfo) Prefix() string {
	prefix := ""

	if c.OnWatchList {
		prefix += watchListMarker
	}

	if c.OnSafeList {
		prefix += safeListMarker
	}

	return prefix
}

// String returns the class name with its list markers.
func (c ClassInfo) String() string {
	prefix := c.Prefix()
	if prefix == "" {
		return c.Name
	}

	return prefix + " " + c.Name
}
