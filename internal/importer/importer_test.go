package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
	"github.com/JonMunkholm/catalogimport/internal/resolve"
)

var testTrees = resolve.TreeSelector{Prefix: "home_and_living", PrefixTreeID: 3, DefaultTreeID: 2}

func keysOf(items []Item) []string {
	var keys []string
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	return keys
}

func TestCategoryImport_PartialAggregation(t *testing.T) {
	gw := newFakeGateway()
	im := &CategoryImporter{Gateway: gw, Trees: testTrees, Workers: 1}

	csv := "key,name_en\nalpha,Alpha\nbeta,\ngamma,\ndelta,\necho,Echo\n"
	res := im.Import(context.Background(), strings.NewReader(csv))

	if res.Status != feed.StatusPartial {
		t.Fatalf("Status = %s, want partial", res.Status)
	}
	if len(res.Successful) != 2 || len(res.Failed) != 3 {
		t.Fatalf("successful=%d failed=%d, want 2/3", len(res.Successful), len(res.Failed))
	}
	for i, f := range res.Failed {
		if f.Line != i+3 || f.Errors[0].Field != "name_en" {
			t.Errorf("Failed[%d] = %+v", i, f)
		}
	}
	if res.Message != "Imported 2 of 5 categories" {
		t.Errorf("Message = %q", res.Message)
	}
	if got := gw.metafields[res.Successful[0].ID]; got != 2 {
		t.Errorf("metafields = %d, want 2", got)
	}
}

func TestCategoryImport_GrandchildrenInOneRun(t *testing.T) {
	gw := newFakeGateway()
	im := &CategoryImporter{Gateway: gw, Trees: testTrees, Workers: 4}

	csv := "key,name_en,parent_category_key\n" +
		"c,Leaf,b\n" +
		"b,Middle,a\n" +
		"a,Root,\n"
	res := im.Import(context.Background(), strings.NewReader(csv))

	if res.Status != feed.StatusSuccess {
		t.Fatalf("Status = %s (%+v)", res.Status, res.Failed)
	}
	if got := fmt.Sprint(keysOf(res.Successful)); got != "[c b a]" {
		t.Errorf("successful order = %s, want input order [c b a]", got)
	}

	byName := make(map[string]catalog.CategoryInput)
	for _, in := range gw.createdCategories {
		byName[in.Name] = in
	}
	ids := make(map[string]int)
	for _, it := range res.Successful {
		ids[it.Key] = it.ID
	}
	if byName["Root"].ParentID != 0 || byName["Root"].TreeID != 2 {
		t.Errorf("Root created as %+v", byName["Root"])
	}
	if byName["Middle"].ParentID != ids["a"] {
		t.Errorf("Middle parent = %d, want %d", byName["Middle"].ParentID, ids["a"])
	}
	if byName["Leaf"].ParentID != ids["b"] || byName["Leaf"].TreeID != 2 {
		t.Errorf("Leaf created as %+v, want parent %d", byName["Leaf"], ids["b"])
	}
	if gw.createdCategories[0].Name != "Root" || gw.createdCategories[2].Name != "Leaf" {
		t.Errorf("creation order = %v", gw.createdCategories)
	}
}

func TestCategoryImport_DuplicateIsSkippedAndChildrenResolve(t *testing.T) {
	gw := newFakeGateway()
	gw.categories = []catalog.Category{{ID: 9, Name: "Lighting", TreeID: 2}}
	gw.onCreateCategory = func(in catalog.CategoryInput) (*catalog.Category, error) {
		if in.Name == "Lighting" {
			return nil, nil
		}
		return &catalog.Category{ID: 50, ParentID: in.ParentID, TreeID: in.TreeID, Name: in.Name}, nil
	}
	im := &CategoryImporter{Gateway: gw, Trees: testTrees, Workers: 1}

	csv := "key,name_en,parent_category_key\nlighting,Lighting,\nlamps,Lamps,lighting\n"
	res := im.Import(context.Background(), strings.NewReader(csv))

	if res.Status != feed.StatusSuccess || len(res.Failed) != 0 {
		t.Fatalf("Status = %s, failed = %+v", res.Status, res.Failed)
	}
	dup := res.Successful[0]
	if !dup.Skipped || dup.ID != 9 {
		t.Errorf("duplicate item = %+v, want skipped with id 9", dup)
	}
	if got := gw.createdCategories[1]; got.ParentID != 9 || got.TreeID != 2 {
		t.Errorf("child created as %+v, want parent 9 in tree 2", got)
	}
}

func TestCategoryImport_ParentResolution(t *testing.T) {
	tests := []struct {
		name      string
		csv       string
		existing  []catalog.Category
		wantField string
		wantMsg   string
		wantID    int
	}{
		{
			name:      "unknown key",
			csv:       "key,name_en,parent_category_key\nx,X,ghost\n",
			wantField: "parent_category_key",
			wantMsg:   `parent category "ghost" not found in feed`,
		},
		{
			name:      "missing remote id",
			csv:       "key,name_en,parent_category_key\nx,X,404\n",
			wantField: "parent_category_key",
			wantMsg:   "parent category 404 does not exist",
		},
		{
			name:     "remote id",
			csv:      "key,name_en,parent_category_key\nx,X,7\n",
			existing: []catalog.Category{{ID: 7, Name: "Seven", TreeID: 3}},
			wantID:   7,
		},
		{
			name:      "cycle",
			csv:       "key,name_en,parent_category_key\nx,X,y\ny,Y,x\n",
			wantField: "parent_category_key",
			wantMsg:   "parent cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.categories = tt.existing
			im := &CategoryImporter{Gateway: gw, Trees: testTrees}

			res := im.Import(context.Background(), strings.NewReader(tt.csv))

			if tt.wantMsg == "" {
				if len(res.Successful) != 1 {
					t.Fatalf("successful = %+v, failed = %+v", res.Successful, res.Failed)
				}
				if got := gw.createdCategories[0]; got.ParentID != tt.wantID || got.TreeID != 3 {
					t.Errorf("created as %+v", got)
				}
				return
			}
			if len(res.Failed) == 0 || res.Status != feed.StatusError {
				t.Fatalf("want failure, got %+v", res)
			}
			d := res.Failed[0].Errors[0]
			if d.Field != tt.wantField || !strings.Contains(d.Message, tt.wantMsg) {
				t.Errorf("detail = %+v, want %s / %q", d, tt.wantField, tt.wantMsg)
			}
			if len(gw.createdCategories) != 0 {
				t.Error("no category should be created")
			}
		})
	}
}

func TestCategoryImport_UnexpectedErrorAborts(t *testing.T) {
	gw := newFakeGateway()
	gw.onCreateCategory = func(in catalog.CategoryInput) (*catalog.Category, error) {
		if in.Name == "Beta" {
			return nil, apiError(503, "Service Unavailable")
		}
		return &catalog.Category{ID: 1, Name: in.Name}, nil
	}
	im := &CategoryImporter{Gateway: gw, Trees: testTrees, Workers: 1}

	csv := "key,name_en\nalpha,Alpha\nbeta,Beta\ngamma,Gamma\n"
	res := im.Import(context.Background(), strings.NewReader(csv))

	if res.Status != feed.StatusError {
		t.Errorf("Status = %s, want error", res.Status)
	}
	if len(res.Successful) != 1 || res.Successful[0].Key != "alpha" {
		t.Errorf("successful = %+v, want alpha kept", res.Successful)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "API001") {
		t.Errorf("errors = %+v", res.Errors)
	}
	if len(gw.createdCategories) != 2 {
		t.Errorf("created %d categories, want 2 (gamma not attempted)", len(gw.createdCategories))
	}
}

func TestCategoryImport_RejectedRowFails(t *testing.T) {
	gw := newFakeGateway()
	gw.onCreateCategory = func(in catalog.CategoryInput) (*catalog.Category, error) {
		return nil, apiError(422, "The field 'name' is invalid.")
	}
	im := &CategoryImporter{Gateway: gw, Trees: testTrees}

	res := im.Import(context.Background(), strings.NewReader("key,name_en\na,A\n"))
	if len(res.Failed) != 1 || res.Failed[0].Errors[0].Message != "The field 'name' is invalid." {
		t.Errorf("failed = %+v, want remote title verbatim", res.Failed)
	}
	if len(res.Errors) != 0 {
		t.Errorf("a 422 must not abort the run: %+v", res.Errors)
	}
}

func TestCategoryImport_ListFailureAborts(t *testing.T) {
	gw := newFakeGateway()
	gw.listErr = apiError(500, "Internal Server Error")
	im := &CategoryImporter{Gateway: gw, Trees: testTrees}

	res := im.Import(context.Background(), strings.NewReader("key,name_en\na,A\n"))
	if res.Status != feed.StatusError || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestChannelImport_ConflictStillCreatesPriceList(t *testing.T) {
	gw := newFakeGateway()
	gw.onCreateChannel = func(in catalog.ChannelInput) (*catalog.Channel, error) {
		if in.Name == "suva" {
			return nil, apiError(409, "Channel already exists")
		}
		return &catalog.Channel{ID: 5, Name: in.Name}, nil
	}
	gw.onCreatePriceList = func(name string) (*catalog.PriceList, error) {
		if name == "suva-pricelist" {
			return &catalog.PriceList{ID: 77, Name: name}, nil
		}
		return nil, apiError(409, "Price list already exists")
	}
	im := &ChannelImporter{Gateway: gw, ApplicationID: 12}

	csv := "key,name_en,isActive\nsuva,Suva Store,TRUE\nnadi,Nadi Store,true\n"
	res := im.Import(context.Background(), strings.NewReader(csv))

	if res.Status != feed.StatusSuccess {
		t.Fatalf("Status = %s, failed = %+v", res.Status, res.Failed)
	}
	suva, nadi := res.Successful[0], res.Successful[1]
	if !suva.Skipped || suva.PriceListID != 77 {
		t.Errorf("suva = %+v, want skipped with price list 77", suva)
	}
	if nadi.Skipped || nadi.ID != 5 || nadi.PriceListID != 0 || len(nadi.Warnings) != 0 {
		t.Errorf("nadi = %+v", nadi)
	}
	if fmt.Sprint(gw.createdPriceLists) != "[suva-pricelist nadi-pricelist]" {
		t.Errorf("price lists = %v", gw.createdPriceLists)
	}
	if gw.createdChannels[0].Status != "active" || gw.createdChannels[1].Status != "inactive" {
		t.Errorf("statuses = %s, %s", gw.createdChannels[0].Status, gw.createdChannels[1].Status)
	}
}

func TestChannelImport_PriceListFailureIsWarning(t *testing.T) {
	gw := newFakeGateway()
	gw.onCreatePriceList = func(name string) (*catalog.PriceList, error) {
		return nil, apiError(422, "Invalid currency")
	}
	im := &ChannelImporter{Gateway: gw}

	res := im.Import(context.Background(), strings.NewReader("key,name_en,isActive\nsuva,Suva,TRUE\n"))
	if res.Status != feed.StatusSuccess || len(res.Successful) != 1 {
		t.Fatalf("result = %+v", res)
	}
	w := res.Successful[0].Warnings
	if len(w) != 1 || !strings.Contains(w[0], "Invalid currency") {
		t.Errorf("warnings = %v", w)
	}
}

func TestChannelImport_RejectedChannelFails(t *testing.T) {
	gw := newFakeGateway()
	gw.onCreateChannel = func(in catalog.ChannelInput) (*catalog.Channel, error) {
		return nil, apiError(422, "Invalid platform")
	}
	im := &ChannelImporter{Gateway: gw}

	res := im.Import(context.Background(), strings.NewReader("key,name_en,isActive\nsuva,Suva,TRUE\n"))
	if res.Status != feed.StatusError || len(res.Failed) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(gw.createdPriceLists) != 0 {
		t.Error("no price list for a rejected channel")
	}
}

func TestChannelImport_RefusedTokenAborts(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{401, "API003"},
		{403, "API003"},
		{429, "API004"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			gw := newFakeGateway()
			gw.onCreateChannel = func(in catalog.ChannelInput) (*catalog.Channel, error) {
				return nil, apiError(tt.status, "refused")
			}
			im := &ChannelImporter{Gateway: gw, Workers: 1}

			csv := "key,name_en,isActive\nsuva,Suva,TRUE\nnadi,Nadi,TRUE\n"
			res := im.Import(context.Background(), strings.NewReader(csv))

			if res.Status != feed.StatusError || len(res.Failed) != 0 {
				t.Fatalf("result = %+v, want run aborted without row failures", res)
			}
			if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, tt.code) {
				t.Errorf("errors = %+v, want %s", res.Errors, tt.code)
			}
			if len(gw.createdChannels) != 1 {
				t.Errorf("channels attempted = %d, want 1", len(gw.createdChannels))
			}
		})
	}
}

func TestChannelRouting(t *testing.T) {
	r := ChannelRouting{BusinessUnit: "HL", BusinessUnitChannelID: 11, DefaultChannelID: 22}
	tests := map[string]int{"HL": 11, "VP": 22, "": 22, "hl": 22}
	for unit, want := range tests {
		if got := r.ChannelFor(unit); got != want {
			t.Errorf("ChannelFor(%q) = %d, want %d", unit, got, want)
		}
	}
}

func TestProductImport_ChannelAssignment(t *testing.T) {
	gw := newFakeGateway()
	im := &ProductImporter{
		Gateway:  gw,
		Channels: ChannelRouting{BusinessUnit: "HL", BusinessUnitChannelID: 11, DefaultChannelID: 22},
	}

	products := "key,name_en,sku,default-price,business-unit\n" +
		"lamp,Lamp,LMP-1,25,HL\n" +
		"desk,Desk,DSK-1,80,VP\n" +
		"nosku,No Sku,,10,VP\n"
	res := im.Import(context.Background(), ProductFeeds{Products: strings.NewReader(products)})

	if res.Status != feed.StatusPartial {
		t.Fatalf("Status = %s", res.Status)
	}
	if len(res.Failed) != 1 || res.Failed[0].Key != "nosku" || res.Failed[0].Errors[0].Field != "sku" {
		t.Errorf("failed = %+v", res.Failed)
	}
	want := []catalog.ChannelAssignment{
		{ProductID: res.Successful[0].ID, ChannelID: 11},
		{ProductID: res.Successful[1].ID, ChannelID: 22},
	}
	if fmt.Sprint(gw.assignments) != fmt.Sprint(want) {
		t.Errorf("assignments = %v, want %v", gw.assignments, want)
	}
	if len(gw.createdProducts) != 2 {
		t.Errorf("created %d products, want 2", len(gw.createdProducts))
	}
}

func TestProductImport_JoinsFeeds(t *testing.T) {
	gw := newFakeGateway()
	im := &ProductImporter{Gateway: gw, Channels: ChannelRouting{DefaultChannelID: 1}}

	feeds := ProductFeeds{
		Products:  strings.NewReader("key,name_en,sku\nlamp,Lamp,LMP-1\n"),
		Pricing:   strings.NewReader("product_key,amount,sale_amount\nlamp,25,19.99\nbroken,abc,\n"),
		Inventory: strings.NewReader("product_key,quantityOnStock\nlamp,7\n"),
	}
	res := im.Import(context.Background(), feeds)

	if res.Status != feed.StatusSuccess {
		t.Fatalf("Status = %s, failed = %+v, errors = %+v", res.Status, res.Failed, res.Errors)
	}
	got := gw.createdProducts[0]
	if got.Price != 25 || got.SalePrice != 19.99 || got.InventoryLevel != 7 {
		t.Errorf("price=%v sale=%v inventory=%v", got.Price, got.SalePrice, got.InventoryLevel)
	}
	if len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "pricing feed: ") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestProductImport_FeedLevelErrors(t *testing.T) {
	tests := []struct {
		name  string
		feeds ProductFeeds
		want  string
	}{
		{
			name:  "no products file",
			feeds: ProductFeeds{},
			want:  "no file provided: products",
		},
		{
			name: "empty pricing feed",
			feeds: ProductFeeds{
				Products: strings.NewReader("key,name_en,sku\nlamp,Lamp,LMP-1\n"),
				Pricing:  strings.NewReader("product_key,amount\n"),
			},
			want: "pricing feed: ",
		},
		{
			name: "empty inventory feed",
			feeds: ProductFeeds{
				Products:  strings.NewReader("key,name_en,sku\nlamp,Lamp,LMP-1\n"),
				Inventory: strings.NewReader(""),
			},
			want: "inventory feed: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			res := (&ProductImporter{Gateway: gw}).Import(context.Background(), tt.feeds)

			if res.Status != feed.StatusError {
				t.Errorf("Status = %s, want error", res.Status)
			}
			if len(res.Errors) == 0 || !strings.Contains(res.Errors[0].Message, tt.want) {
				t.Errorf("errors = %+v, want %q", res.Errors, tt.want)
			}
			if len(gw.createdProducts) != 0 {
				t.Error("no product should be created")
			}
		})
	}
}

func TestProductImport_MissingChannelIsWarning(t *testing.T) {
	gw := newFakeGateway()
	im := &ProductImporter{Gateway: gw}

	res := im.Import(context.Background(), ProductFeeds{
		Products: strings.NewReader("key,name_en,sku,default-price\nlamp,Lamp,LMP-1,25\n"),
	})
	if res.Status != feed.StatusSuccess || len(res.Successful[0].Warnings) != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(gw.assignments) != 0 {
		t.Errorf("assignments = %v, want none", gw.assignments)
	}
}

func TestPriceListImport_GroupsByStore(t *testing.T) {
	gw := newFakeGateway()
	gw.priceLists = []catalog.PriceList{{ID: 1, Name: "s1-pricelist"}}
	im := &PriceListImporter{Gateway: gw, Currency: "FJD", Workers: 2}

	csv := "product_key,amount,store_key\nLMP-1,25,s1\nDSK-1,80,s2\nCHR-1,15,s1\n"
	res := im.Import(context.Background(), strings.NewReader(csv))

	if res.Status != feed.StatusPartial {
		t.Fatalf("Status = %s", res.Status)
	}
	if got := len(gw.upserts[1]); got != 2 {
		t.Errorf("s1 batch has %d records, want 2", got)
	}
	if len(res.Successful) != 2 || res.Successful[0].SKU != "LMP-1" || res.Successful[1].SKU != "CHR-1" {
		t.Errorf("successful = %+v", res.Successful)
	}
	if res.Successful[0].PriceListID != 1 {
		t.Errorf("PriceListID = %d, want 1", res.Successful[0].PriceListID)
	}
	if len(res.Failed) != 1 || res.Failed[0].Errors[0].Message != "No price list found for store: s2" {
		t.Errorf("failed = %+v", res.Failed)
	}
	if gw.listCalls != 1 {
		t.Errorf("price lists listed %d times, want 1", gw.listCalls)
	}
}

func TestPriceListImport_RejectedRecords(t *testing.T) {
	gw := newFakeGateway()
	gw.priceLists = []catalog.PriceList{{ID: 1, Name: "s1-pricelist"}}
	gw.onUpsert = func(id int, records []catalog.PriceRecordInput) (catalog.RecordOutcome, error) {
		return catalog.RecordOutcome{
			Saved: []int{0},
			Failed: []catalog.RecordFailure{
				{Index: 1, SKU: records[1].SKU, Message: "SKU not found"},
				{Index: 2, SKU: records[2].SKU, Message: "record not confirmed", Indeterminate: true},
			},
		}, nil
	}
	im := &PriceListImporter{Gateway: gw, Currency: "FJD"}

	csv := "product_key,amount,store_key\nA,1,s1\nB,2,s1\nC,3,s1\n"
	res := im.Import(context.Background(), strings.NewReader(csv))

	if res.Status != feed.StatusPartial || len(res.Successful) != 1 || len(res.Failed) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if d := res.Failed[0].Errors[0]; d.Field != "sku" || d.Message != "SKU not found" {
		t.Errorf("rejected detail = %+v", d)
	}
	if d := res.Failed[1].Errors[0]; d.Field != "" || res.Failed[1].SKU != "C" {
		t.Errorf("indeterminate failure = %+v", res.Failed[1])
	}
}

func TestPriceListImport_NoValidRows(t *testing.T) {
	gw := newFakeGateway()
	im := &PriceListImporter{Gateway: gw, Currency: "FJD"}

	res := im.Import(context.Background(), strings.NewReader("product_key,amount,store_key\nA,0,s1\nB,-2,s1\n"))
	if res.Status != feed.StatusError || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Errors[0].Message != "No valid price list rows found in feed" {
		t.Errorf("error = %q", res.Errors[0].Message)
	}
	if gw.listCalls != 0 {
		t.Error("no remote call expected")
	}
}

func TestForEach_StopsOnError(t *testing.T) {
	var calls int
	err := forEach(context.Background(), 1, 5, func(ctx context.Context, i int) error {
		calls++
		if i == 1 {
			return fmt.Errorf("boom")
		}
		return nil
	})
	if err == nil || err.Error() != "boom" {
		t.Errorf("err = %v, want boom", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestForEach_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := forEach(ctx, 2, 3, func(ctx context.Context, i int) error {
		t.Error("fn must not run on a cancelled context")
		return nil
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
