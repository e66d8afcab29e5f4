package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/JonMunkholm/catalogimport/internal/mapping"
	"github.com/JonMunkholm/catalogimport/internal/resolve"
)

// CategoryImporter creates a category feed tier by tier: every parent is
// created before its children, and the categories of one tier are created
// with at most Workers calls in flight.
type CategoryImporter struct {
	Gateway CategoryGateway
	Trees   resolve.TreeSelector
	Workers int
}

// categoryRun is the state of one category import.
type categoryRun struct {
	*CategoryImporter
	records []feed.CategoryRecord
	inFeed  map[string]bool
	index   *resolve.CategoryIndex
	state   *resolve.RunState
}

// Import runs the category pipeline over one feed.
func (im *CategoryImporter) Import(ctx context.Context, r io.Reader) *Result {
	log := logging.WithFields(ctx, "import", KindCategories)
	res := newResult()

	parsed := feed.Parse(r, feed.CategorySchema)
	res.absorbParse(parsed.Errors)
	if len(parsed.Records) == 0 {
		return res.finish("categories")
	}

	index, err := resolve.LoadCategoryIndex(ctx, im.Gateway)
	if err != nil {
		res.abort(err)
		return res.finish("categories")
	}

	run := &categoryRun{
		CategoryImporter: im,
		records:          parsed.Records,
		inFeed:           make(map[string]bool, len(parsed.Records)),
		index:            index,
		state:            resolve.NewRunState(),
	}
	for _, rec := range parsed.Records {
		run.inFeed[rec.Key] = true
	}

	positions := make([]int, len(parsed.Records))
	for i := range positions {
		positions[i] = i
	}
	plan := resolve.Tiers(positions,
		func(i int) string { return parsed.Records[i].Key },
		func(i int) string { return parsed.Records[i].ParentKey },
	)

	slots := make([]outcome, len(parsed.Records))
	for _, i := range plan.Cyclic {
		rec := parsed.Records[i]
		slots[i] = failed(rec.Key, "", rec.Line, "parent_category_key",
			fmt.Sprintf("category %q is part of a parent cycle", rec.Key))
	}

	log.Info("category import planned", "rows", len(parsed.Records), "tiers", len(plan.Tiers), "cyclic", len(plan.Cyclic))

	for depth, tier := range plan.Tiers {
		err := forEach(ctx, im.Workers, len(tier), func(ctx context.Context, n int) error {
			i := tier[n]
			o, err := run.create(ctx, parsed.Records[i])
			if err != nil {
				return err
			}
			slots[i] = o
			return nil
		})
		if err != nil {
			log.Error("category import aborted", "tier", depth, "error", err)
			res.abort(err)
			break
		}
	}

	res.collect(slots)
	return res.finish("categories")
}

// create resolves the parent of rec, creates it and attaches its metafields.
// It returns an error only when the run must stop.
func (run *categoryRun) create(ctx context.Context, rec feed.CategoryRecord) (outcome, error) {
	payload := mapping.MapCategory(rec)

	parent, reason, err := run.parentOf(ctx, rec, payload.Input.ParentID)
	if err != nil {
		return outcome{}, err
	}
	if reason != "" {
		return failed(rec.Key, "", rec.Line, "parent_category_key", reason), nil
	}
	payload.Input.ParentID = parent.ID
	payload.Input.TreeID = parent.TreeID

	created, err := run.Gateway.CreateCategory(ctx, payload.Input)
	if err != nil {
		if catalog.IsUnexpected(err) {
			return outcome{}, err
		}
		return failed(rec.Key, "", rec.Line, "", catalog.Message(err)), nil
	}

	if created == nil {
		return run.recoverDuplicate(ctx, rec, payload.Input)
	}

	run.state.Set(rec.Key, resolve.CategoryRef{ID: created.ID, TreeID: created.TreeID})
	if created.ParentID == 0 {
		created.ParentID = payload.Input.ParentID
	}
	run.index.Add(*created)

	item := Item{Key: rec.Key, Name: rec.Name, Line: rec.Line, ID: created.ID}
	for _, m := range mapping.CategoryMetafields(rec) {
		if err := run.Gateway.CreateCategoryMetafield(ctx, created.ID, m); err != nil {
			logging.FromContext(ctx).Warn("category metafield not created",
				"category_id", created.ID, "key", m.Key, "error", err)
			item.Warnings = append(item.Warnings, fmt.Sprintf("metafield %s not created: %s", m.Key, catalog.Message(err)))
		}
	}
	return succeeded(item), nil
}

// parentOf returns the ref a category is created under. Roots get the tree
// picked by their key. A parent from the feed must already have been created
// in this run; a parent outside the feed must be a numeric remote id.
// reason is set when the row cannot be created.
func (run *categoryRun) parentOf(ctx context.Context, rec feed.CategoryRecord, remoteID int) (resolve.CategoryRef, string, error) {
	if rec.ParentKey == "" {
		return resolve.CategoryRef{TreeID: run.Trees.TreeFor(rec.Key)}, "", nil
	}

	if ref, ok := run.state.Get(rec.ParentKey); ok {
		if ref.TreeID == 0 {
			ref.TreeID = run.Trees.TreeFor(rec.Key)
		}
		return ref, "", nil
	}
	if run.inFeed[rec.ParentKey] {
		return resolve.CategoryRef{}, fmt.Sprintf("parent category %q was not created", rec.ParentKey), nil
	}
	if remoteID == 0 {
		return resolve.CategoryRef{}, fmt.Sprintf("parent category %q not found in feed", rec.ParentKey), nil
	}

	cat, err := run.Gateway.GetCategory(ctx, remoteID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return resolve.CategoryRef{}, fmt.Sprintf("parent category %d does not exist", remoteID), nil
	case err != nil && catalog.IsUnexpected(err):
		return resolve.CategoryRef{}, "", err
	case err != nil:
		return resolve.CategoryRef{}, catalog.Message(err), nil
	}
	return resolve.CategoryRef{ID: cat.ID, TreeID: cat.TreeID}, "", nil
}

// recoverDuplicate looks up the category that made the create a duplicate
// so children in later tiers can still attach to it. The row is reported as
// skipped, not failed.
func (run *categoryRun) recoverDuplicate(ctx context.Context, rec feed.CategoryRecord, in catalog.CategoryInput) (outcome, error) {
	log := logging.FromContext(ctx)

	existing, ok := run.index.Find(in.Name, in.ParentID, in.TreeID)
	if !ok {
		cats, err := run.Gateway.ListCategories(ctx)
		if err != nil && catalog.IsUnexpected(err) {
			return outcome{}, err
		}
		if err == nil {
			fresh := resolve.NewCategoryIndex(cats)
			existing, ok = fresh.Find(in.Name, in.ParentID, in.TreeID)
		}
	}

	item := Item{Key: rec.Key, Name: rec.Name, Line: rec.Line, Skipped: true}
	if !ok {
		log.Warn("duplicate category id not resolved", "key", rec.Key, "name", rec.Name)
		item.Warnings = append(item.Warnings, "category already exists; its id could not be resolved")
		return succeeded(item), nil
	}

	treeID := existing.TreeID
	if treeID == 0 {
		treeID = in.TreeID
	}
	run.state.Set(rec.Key, resolve.CategoryRef{ID: existing.ID, TreeID: treeID})
	item.ID = existing.ID
	log.Info("category already exists", "key", rec.Key, "category_id", existing.ID)
	return succeeded(item), nil
}
