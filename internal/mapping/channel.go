package mapping

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
)

// SectionStoreKey is the config section holding a channel's store key, the
// only handle on channel identity once it is created.
const SectionStoreKey = "store_key"

var (
	channelNameStrip = regexp.MustCompile(`[^a-zA-Z0-9\-_\s]`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// ChannelPayload is a channel ready for creation.
type ChannelPayload struct {
	Line  int
	Input catalog.ChannelInput
}

// StoreKey reads the store key back out of the config sections.
func (p ChannelPayload) StoreKey() string {
	for _, s := range p.Input.ConfigMeta.App.Sections {
		if s.Title == SectionStoreKey {
			return s.QueryPath
		}
	}
	return ""
}

// MapChannel builds the channel create body. Status is active only for the
// exact value "TRUE"; any other spelling, including "true", is inactive.
func MapChannel(rec feed.ChannelRecord, appID int) ChannelPayload {
	status := "inactive"
	if rec.IsActive == "TRUE" {
		status = "active"
	}

	hours, _ := json.Marshal(rec.OpeningHours)

	return ChannelPayload{
		Line: rec.Line,
		Input: catalog.ChannelInput{
			Name:             rec.Key,
			Type:             "pos",
			Platform:         "custom",
			Status:           status,
			IsListableFromUI: true,
			IsVisible:        true,
			ConfigMeta: catalog.ConfigMeta{App: catalog.AppConfig{
				ID: appID,
				Sections: []catalog.Section{
					{Title: "Store Details", QueryPath: "store-details"},
					{Title: SectionStoreKey, QueryPath: rec.Key},
					{Title: "hire_purchase_store", QueryPath: rec.HirePurchaseStore},
					{Title: "hire_purchase_vendor", QueryPath: rec.HirePurchaseVendor},
					{Title: "city", QueryPath: rec.City},
					{Title: "colo", QueryPath: rec.Colo},
					{Title: "geo_code", QueryPath: rec.GeoCode},
					{Title: "phone", QueryPath: rec.Phone},
					{Title: "opening_hours", QueryPath: string(hours)},
					{Title: "display_name", QueryPath: SanitizeChannelName(rec.Name)},
				},
			}},
		},
	}
}

// SanitizeChannelName reduces a store name to letters, digits, dash and
// underscore: "&" becomes "and" and whitespace runs become "_".
func SanitizeChannelName(name string) string {
	name = strings.ReplaceAll(name, "&", "and")
	name = channelNameStrip.ReplaceAllString(name, "")
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
}
