package swap

import (
	"strings"
)

// AssetRef identifies one transferable item: the registry that holds it and
// the item id within that registry.
type AssetRef struct {
	RegistryID string `json:"registry_id" codec:"registry"`
	ItemID     string `json:"item_id" codec:"item"`
}

// Key is the canonical "registry/item" form used in storage keys and logs.
func (a AssetRef) Key() string {
	return a.RegistryID + "/" + a.ItemID
}

func (a AssetRef) String() string { return a.Key() }

// Validate checks both fields are set. The registry id may not contain '/'
// so that Key stays unambiguous.
func (a AssetRef) Validate() error {
	if a.RegistryID == "" || a.ItemID == "" {
		return failf(TemMALFORMED, "asset needs registry and item id")
	}
	if strings.Contains(a.RegistryID, "/") {
		return failf(TemMALFORMED, "registry id %q contains '/'", a.RegistryID)
	}
	return nil
}

func containsAsset(list []AssetRef, a AssetRef) bool {
	return indexOfAsset(list, a) >= 0
}

func indexOfAsset(list []AssetRef, a AssetRef) int {
	for i, x := range list {
		if x == a {
			return i
		}
	}
	return -1
}

// removeAsset drops the first occurrence of a, keeping order.
func removeAsset(list []AssetRef, a AssetRef) []AssetRef {
	i := indexOfAsset(list, a)
	if i < 0 {
		return list
	}
	out := make([]AssetRef, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func removeString(list []string, s string) []string {
	for i, x := range list {
		if x == s {
			out := make([]string, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	return list
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
