package synccache

import "fmt"

// Kind names a remote resource collection.
type Kind string

const (
	KindSites          Kind = "sites"
	KindSite           Kind = "site"
	KindImports        Kind = "imports"
	KindEstablishments Kind = "establishments"
	KindPages          Kind = "pages"
	KindPrompts        Kind = "prompts"
)

// Key identifies one cache slot. SiteID is zero for collections that are not
// scoped to a site. Key is comparable, so equal keys always share a slot.
type Key struct {
	Kind   Kind
	SiteID int64
}

func (k Key) String() string {
	if k.SiteID == 0 {
		return string(k.Kind)
	}
	return fmt.Sprintf("%s/%d", k.Kind, k.SiteID)
}

func SitesKey() Key { return Key{Kind: KindSites} }

func SiteKey(siteID int64) Key { return Key{Kind: KindSite, SiteID: siteID} }

func ImportsKey(siteID int64) Key { return Key{Kind: KindImports, SiteID: siteID} }

func EstablishmentsKey(siteID int64) Key { return Key{Kind: KindEstablishments, SiteID: siteID} }

func PagesKey(siteID int64) Key { return Key{Kind: KindPages, SiteID: siteID} }

func PromptsKey(siteID int64) Key { return Key{Kind: KindPrompts, SiteID: siteID} }
