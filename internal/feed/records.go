package feed

import "fmt"

// CustomField is a name/value attribute carried through to the remote product.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductRecord is one row of the product feed.
type ProductRecord struct {
	Line            int
	Key             string
	Name            string
	SKU             string
	Description     string
	Categories      []string
	DefaultPrice    float64
	Length          float64
	Width           float64
	Height          float64
	Weight          float64
	Active          bool
	MetaTitle       string
	MetaKeywords    []string
	MetaDescription string
	Slug            string
	MediaURL        string
	Thumbnail       string
	Brand           string
	Tags            string
	BusinessUnit    string
	CustomFields    []CustomField
}

// PriceRecord is one row of the pricing feed.
type PriceRecord struct {
	Line       int
	Key        string
	ProductKey string
	Amount     float64
	SaleAmount float64
	StoreKey   string
}

// InventoryRecord is one row of the inventory feed.
type InventoryRecord struct {
	Line              int
	Key               string
	ProductKey        string
	QuantityOnStock   int
	RestockableInDays int
	StoreKey          string
}

// CategoryRecord is one row of the category feed.
type CategoryRecord struct {
	Line            int
	Key             string
	Name            string
	ParentKey       string
	Slug            string
	Description     string
	MetaTitle       string
	MetaDescription string
	MetaKeywords    string
	IsActive        bool
	IsBrand         bool
}

// ChannelRecord is one row of the channel (store) feed. IsActive is kept
// verbatim because channel status is decided by an exact comparison.
type ChannelRecord struct {
	Line               int
	Key                string
	Name               string
	IsActive           string
	HirePurchaseStore  string
	HirePurchaseVendor string
	City               string
	Colo               string
	GeoCode            string
	Phone              string
	OpeningHours       OpeningHours
}

// OpeningHours holds the free-text hours per weekday.
type OpeningHours struct {
	Monday         string `json:"monday"`
	Tuesday        string `json:"tuesday"`
	Wednesday      string `json:"wednesday"`
	Thursday       string `json:"thursday"`
	Friday         string `json:"friday"`
	Saturday       string `json:"saturday"`
	Sunday         string `json:"sunday"`
	PublicHolidays string `json:"publicholidays"`
}

// AssignmentRecord is one row of the price-list assignment feed. Amounts stay
// raw; the assignment mapper decides which of them are usable.
type AssignmentRecord struct {
	Line         int
	ProductKey   string
	StoreKey     string
	Amount       string
	SaleAmount   string
	RetailAmount string
	MapAmount    string
	BulkPricing  string
	Currency     string
}

// productCustomFields lists the custom field names and the feed columns they
// are read from, in the order they are sent.
var productCustomFields = []struct{ name, column string }{
	{"allow_user_to_checkout", "allow-user-to-checkout"},
	{"is_hp_product", "is-hp-product"},
	{"colour", "colour"},
	{"grade", "grade"},
	{"material", "material"},
	{"uom", "uom"},
	{"brand", "brand"},
	{"tags", "tags"},
	{"max_hp_term", "max-hp-term"},
	{"vendor_item_code", "vendor-item-code"},
	{"media_urls", "mediaUrls"},
	{"is_active", "is-active"},
	{"product_type_key", "product-type-key"},
	{"business_unit", "business-unit"},
}

// ProductSchema parses the product feed.
var ProductSchema = Schema[ProductRecord]{
	Name:     "product",
	Required: []string{"key", "name_en"},
	Map:      mapProduct,
}

// PriceSchema parses the pricing feed.
var PriceSchema = Schema[PriceRecord]{
	Name:     "price",
	Required: []string{"product_key", "amount"},
	Map:      mapPrice,
}

// InventorySchema parses the inventory feed.
var InventorySchema = Schema[InventoryRecord]{
	Name:     "inventory",
	Required: []string{"product_key", "quantityOnStock"},
	Map:      mapInventory,
}

// CategorySchema parses the category feed.
var CategorySchema = Schema[CategoryRecord]{
	Name:     "category",
	Required: []string{"key", "name_en"},
	Map:      mapCategoryRow,
}

// ChannelSchema parses the channel feed.
var ChannelSchema = Schema[ChannelRecord]{
	Name:     "channel",
	Required: []string{"key", "name_en", "isActive"},
	Map:      mapChannelRow,
}

// AssignmentSchema parses the price-list assignment feed.
var AssignmentSchema = Schema[AssignmentRecord]{
	Name:     "price list",
	Required: []string{"product_key", "amount", "store_key"},
	Map:      mapAssignmentRow,
}

func mapProduct(row Row) (ProductRecord, error) {
	name := row.Get("name_en")
	key := row.Get("key")
	description := firstNonEmpty(row.Get("description-en"), name)

	fields := make([]CustomField, 0, len(productCustomFields)+1)
	fields = append(fields, CustomField{Name: "key", Value: key})
	for _, f := range productCustomFields {
		fields = append(fields, CustomField{Name: f.name, Value: row.Get(f.column)})
	}

	return ProductRecord{
		Line:            row.Line,
		Key:             key,
		Name:            name,
		SKU:             row.Get("sku"),
		Description:     description,
		Categories:      ParseCategoryList(row.Get("categories")),
		DefaultPrice:    LeadingNumber(row.Get("default-price"), 0),
		Length:          LeadingNumber(row.Get("length"), 0),
		Width:           LeadingNumber(row.Get("width"), 0),
		Height:          LeadingNumber(row.Get("height"), 0),
		Weight:          LeadingNumber(row.Get("weight"), 0),
		Active:          ParseFlag(row.Get("is-active")),
		MetaTitle:       firstNonEmpty(row.Get("meta-title"), name),
		MetaKeywords:    SplitList(row.Get("metaKeywords-en")),
		MetaDescription: firstNonEmpty(row.Get("meta-description-en"), description),
		Slug:            row.Get("slug-en"),
		MediaURL:        row.Get("mediaURL"),
		Thumbnail:       row.Get("thumbnail"),
		Brand:           row.Get("brand"),
		Tags:            row.Get("tags"),
		BusinessUnit:    row.Get("business-unit"),
		CustomFields:    fields,
	}, nil
}

func mapPrice(row Row) (PriceRecord, error) {
	amount, ok := ParseNumber(row.Get("amount"))
	if !ok {
		return PriceRecord{}, &FieldError{Field: "amount", Message: fmt.Sprintf("invalid number %q", row.Get("amount"))}
	}
	sale, _ := ParseNumber(row.Get("sale_amount"))
	return PriceRecord{
		Line:       row.Line,
		Key:        row.Get("key"),
		ProductKey: row.Get("product_key"),
		Amount:     amount,
		SaleAmount: sale,
		StoreKey:   row.Get("store_key"),
	}, nil
}

func mapInventory(row Row) (InventoryRecord, error) {
	qty, ok := ParseCount(row.Get("quantityOnStock"))
	if !ok {
		return InventoryRecord{}, &FieldError{
			Field:   "quantityOnStock",
			Message: fmt.Sprintf("invalid whole number %q", row.Get("quantityOnStock")),
		}
	}
	restock, _ := ParseCount(row.Get("restockableInDays"))
	return InventoryRecord{
		Line:              row.Line,
		Key:               row.Get("key"),
		ProductKey:        row.Get("product_key"),
		QuantityOnStock:   qty,
		RestockableInDays: restock,
		StoreKey:          row.Get("store_key"),
	}, nil
}

func mapCategoryRow(row Row) (CategoryRecord, error) {
	name := row.Get("name_en")
	return CategoryRecord{
		Line:            row.Line,
		Key:             row.Get("key"),
		Name:            name,
		ParentKey:       row.Get("parent_category_key"),
		Slug:            firstNonEmpty(row.Get("slug_en"), Slugify(name)),
		Description:     row.Get("description_en"),
		MetaTitle:       firstNonEmpty(row.Get("metaTitle"), name),
		MetaDescription: row.Get("metaDescription"),
		MetaKeywords:    row.Get("metaKeywords_en"),
		IsActive:        ParseFlag(row.Get("isActive")),
		IsBrand:         ParseFlag(row.Get("isBrandCategory")),
	}, nil
}

func mapChannelRow(row Row) (ChannelRecord, error) {
	return ChannelRecord{
		Line:               row.Line,
		Key:                row.Get("key"),
		Name:               row.Get("name_en"),
		IsActive:           row.Get("isActive"),
		HirePurchaseStore:  row.Get("hire_purchase_store"),
		HirePurchaseVendor: row.Get("hire_purchase_vendor"),
		City:               row.Get("city"),
		Colo:               row.Get("colo"),
		GeoCode:            row.Get("geo_code"),
		Phone:              row.Get("phone"),
		OpeningHours: OpeningHours{
			Monday:         anyColumn(row, "monday", "Monday"),
			Tuesday:        anyColumn(row, "Tuesday", "tuesday"),
			Wednesday:      anyColumn(row, "Wednesday", "wednesday"),
			Thursday:       anyColumn(row, "Thursday", "thursday"),
			Friday:         anyColumn(row, "Friday", "friday"),
			Saturday:       anyColumn(row, "Saturday", "saturday"),
			Sunday:         anyColumn(row, "Sunday", "sunday"),
			PublicHolidays: anyColumn(row, "publicholidays", "publicHolidays", "PublicHolidays"),
		},
	}, nil
}

func mapAssignmentRow(row Row) (AssignmentRecord, error) {
	return AssignmentRecord{
		Line:         row.Line,
		ProductKey:   row.Get("product_key"),
		StoreKey:     row.Get("store_key"),
		Amount:       row.Get("amount"),
		SaleAmount:   row.Get("sale_amount"),
		RetailAmount: row.Get("retail_amount"),
		MapAmount:    row.Get("map_amount"),
		BulkPricing:  row.Get("bulk_pricing"),
		Currency:     row.Get("currency"),
	}, nil
}

func anyColumn(row Row, columns ...string) string {
	for _, c := range columns {
		if v := row.Get(c); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
