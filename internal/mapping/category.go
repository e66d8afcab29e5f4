// Package mapping turns parsed feed records into remote API payloads.
//
// Mappers are pure: they never call the network and return the same payload
// for the same input. Anything that needs remote state (category ids, price
// list ids, tree ids) is passed in or filled in later by the importers.
package mapping

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
)

const (
	metafieldNamespace  = "custom"
	metafieldPermission = "read_and_sf_access"
)

// CategoryPayload is a category ready for creation. Input.TreeID and, for
// children of categories created in the same run, Input.ParentID are set by
// the importer once the parent exists.
type CategoryPayload struct {
	Key       string
	ParentKey string
	Line      int
	Input     catalog.CategoryInput
}

// MapCategory projects a category record onto the create body. A numeric
// parent key is taken as a remote category id.
func MapCategory(rec feed.CategoryRecord) CategoryPayload {
	in := catalog.CategoryInput{
		Name:            rec.Name,
		Description:     rec.Description,
		PageTitle:       firstNonEmpty(rec.MetaTitle, rec.Name),
		MetaKeywords:    feed.SplitList(rec.MetaKeywords),
		MetaDescription: rec.MetaDescription,
		IsVisible:       rec.IsActive,
	}
	if in.MetaKeywords == nil {
		in.MetaKeywords = []string{}
	}
	if id, err := strconv.Atoi(rec.ParentKey); err == nil && id > 0 {
		in.ParentID = id
	}
	if slug := strings.Trim(rec.Slug, "/"); slug != "" {
		in.URL = &catalog.CustomURL{URL: "/" + slug + "/", IsCustomized: true}
	}

	return CategoryPayload{
		Key:       rec.Key,
		ParentKey: rec.ParentKey,
		Line:      rec.Line,
		Input:     in,
	}
}

// CategoryMetafields returns the storefront flags stored alongside a category.
func CategoryMetafields(rec feed.CategoryRecord) []catalog.Metafield {
	return []catalog.Metafield{
		{Namespace: metafieldNamespace, Key: "is_brand_category", Value: strconv.FormatBool(rec.IsBrand), PermissionSet: metafieldPermission},
		{Namespace: metafieldNamespace, Key: "is_active", Value: strconv.FormatBool(rec.IsActive), PermissionSet: metafieldPermission},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
