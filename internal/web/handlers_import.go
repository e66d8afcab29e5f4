package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/catalogimport/internal/feed"
	"github.com/JonMunkholm/catalogimport/internal/importer"
	"github.com/JonMunkholm/catalogimport/internal/logging"
)

// multipartMemory is how much of an upload is buffered in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// Form fields of the import endpoints.
const (
	fieldCategories = "categories"
	fieldChannels   = "channels"
	fieldProducts   = "products"
	fieldPricing    = "pricing"
	fieldInventory  = "inventory"
	fieldFile       = "file"
)

// uploads holds the files of one import request.
type uploads struct {
	files map[string]multipart.File
}

func (u *uploads) get(field string) io.Reader {
	if f, ok := u.files[field]; ok {
		return f
	}
	return nil
}

func (u *uploads) close() {
	for _, f := range u.files {
		f.Close()
	}
}

// readUploads parses the multipart body and opens the named files. Fields in
// required must be present; optional ones may be missing.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request, required, optional []string) (*uploads, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize*int64(len(required)+len(optional)))

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: invalid multipart form: %v", errMissingFile, err)
	}

	u := &uploads{files: make(map[string]multipart.File)}
	open := func(field string, must bool) error {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			if must {
				return &missingFileError{field: field}
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("open %s: %w", field, err)
		}
		if header.Size > maxSize {
			file.Close()
			return &http.MaxBytesError{Limit: maxSize}
		}
		u.files[field] = file
		return nil
	}

	for _, field := range required {
		if err := open(field, true); err != nil {
			u.close()
			return nil, err
		}
	}
	for _, field := range optional {
		if err := open(field, false); err != nil {
			u.close()
			return nil, err
		}
	}
	return u, nil
}

// handleImportCategories imports the categories file.
func (s *Server) handleImportCategories(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUploads(w, r, []string{fieldCategories}, nil)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer u.close()

	report, err := s.service.ImportCategories(r.Context(), u.get(fieldCategories))
	s.respondReport(w, r, report, err)
}

// handleImportChannels imports the channels file.
func (s *Server) handleImportChannels(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUploads(w, r, []string{fieldChannels}, nil)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer u.close()

	report, err := s.service.ImportChannels(r.Context(), u.get(fieldChannels))
	s.respondReport(w, r, report, err)
}

// handleImportProducts imports the products file joined with the optional
// pricing and inventory files.
func (s *Server) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUploads(w, r, []string{fieldProducts}, []string{fieldPricing, fieldInventory})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer u.close()

	report, err := s.service.ImportProducts(r.Context(), importer.ProductFeeds{
		Products:  u.get(fieldProducts),
		Pricing:   u.get(fieldPricing),
		Inventory: u.get(fieldInventory),
	})
	s.respondReport(w, r, report, err)
}

// handleAssignPriceLists imports the price-list assignment file.
func (s *Server) handleAssignPriceLists(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUploads(w, r, []string{fieldFile}, nil)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer u.close()

	report, err := s.service.AssignPriceLists(r.Context(), u.get(fieldFile))
	s.respondReport(w, r, report, err)
}

// respondReport writes a finished run: 200 for success and partial, 400 when
// the run ended in error.
func (s *Server) respondReport(w http.ResponseWriter, r *http.Request, report *importer.Report, err error) {
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	status := http.StatusOK
	if report.Status == feed.StatusError {
		status = http.StatusBadRequest
		logging.FromContext(r.Context()).Warn("import failed",
			"run_id", report.RunID, "message", report.Message, "errors", len(report.Errors))
	}
	writeJSON(w, status, report)
}
