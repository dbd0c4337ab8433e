package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/models"
)

// multipartOverhead is the room left for part headers and boundaries on top
// of the configured file size.
const multipartOverhead = 64 << 10

var uploadFields = map[string]bool{"file": true, "my_file": true}

func (s *Server) handleAdminCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

		var in catalog.ProductInput
		if err := decodeJSON(r, &in); err != nil {
			respondError(w, r, err)
			return
		}

		product, err := s.catalog.CreateProduct(r.Context(), in)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusCreated, envelope{"message": "Product added successfully", "product": product})
	}
}

func (s *Server) handleAdminList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

		q, err := parseProductQuery(r)
		if err != nil {
			respondError(w, r, err)
			return
		}

		page, err := s.catalog.ListProducts(r.Context(), q.filter(), models.ParseSortOption(q.SortBy), q.Page, q.Limit)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{
			"items":       page.Items,
			"totalCount":  page.TotalCount,
			"totalPages":  page.TotalPages,
			"currentPage": page.CurrentPage,
			"limit":       page.Limit,
		})
	}
}

func (s *Server) handleAdminUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

		var patch catalog.ProductPatch
		if err := decodeJSON(r, &patch); err != nil {
			respondError(w, r, err)
			return
		}

		product, err := s.catalog.UpdateProduct(r.Context(), mux.Vars(r)["id"], patch)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"message": "Product updated successfully", "data": product})
	}
}

func (s *Server) handleAdminDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := s.catalog.DeleteProduct(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"message": "Product deleted successfully", "data": product})
	}
}

// handleUploadImage streams the first file part of a multipart body into the
// media service without buffering the whole form.
func (s *Server) handleUploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.media.MaxBytes()+multipartOverhead)

		part, err := filePart(r)
		if err != nil {
			respondError(w, r, err)
			return
		}
		defer part.Close()

		url, err := s.media.Upload(r.Context(), part)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{
			"message": "Image uploaded successfully",
			"result":  envelope{"url": url},
		})
	}
}

func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperr.Validation("request must be multipart/form-data")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apperr.Validation("no file uploaded")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperr.TooLarge("request body too large")
		}
		if err != nil {
			return nil, apperr.Validation("malformed multipart body")
		}
		if uploadFields[part.FormName()] && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}
