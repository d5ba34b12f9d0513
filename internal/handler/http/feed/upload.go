package feed

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"

	"community-hub/internal/apierror"
	"community-hub/internal/backend"
	"community-hub/internal/handler/http/respond"
	"community-hub/internal/resilience/circuitbreaker"
	feedUC "community-hub/internal/usecase/feed"
)

// OpUpload names media uploads in logs and errors.
const OpUpload = "uploadFile"

var imageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// UploadResponse describes a stored object.
type UploadResponse struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	URL    string `json:"url"`
}

// Upload serves POST /uploads/{bucket}?name. The request body is the raw
// image; its Content-Type must be one of the accepted image types.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	if !slices.Contains(feedUC.Buckets, bucket) {
		respond.JSON(w, http.StatusNotFound, respond.ErrorBody{
			Error: "unknown bucket: " + bucket,
			Code:  "UNKNOWN_BUCKET",
		})
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !slices.Contains(imageTypes, mediaType) {
		respond.JSON(w, http.StatusUnsupportedMediaType, respond.ErrorBody{
			Error: "Content-Type must be one of " + strings.Join(imageTypes, ", "),
			Code:  "UNSUPPORTED_MEDIA_TYPE",
		})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.JSON(w, http.StatusRequestEntityTooLarge, respond.ErrorBody{
				Error: "File too large",
				Code:  "PAYLOAD_TOO_LARGE",
			})
			return
		}
		respond.BadRequest(w, "could not read request body")
		return
	}
	if len(body) == 0 {
		respond.BadRequest(w, "request body is empty")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}

	objectPath, err := h.Storage.Upload(r.Context(), bucket, name, mediaType, bytes.NewReader(body))
	if err != nil {
		h.fail(w, r, OpUpload, uploadError(err))
		return
	}

	respond.JSON(w, http.StatusCreated, UploadResponse{
		Bucket: bucket,
		Path:   objectPath,
		URL:    h.Storage.PublicURL(bucket, objectPath),
	})
}

// uploadError classifies a storage failure. The storage API reports no
// database codes, so its HTTP status decides the client-facing kind.
func uploadError(err error) error {
	if circuitbreaker.IsRejection(err) {
		return apierror.ServiceUnavailable(OpUpload)
	}

	var be *backend.Error
	if errors.As(err, &be) {
		switch be.Status {
		case http.StatusUnauthorized:
			return &apierror.Error{Message: apierror.MessageAuth, Code: apierror.CodeAuth, Kind: apierror.KindAuth, Operation: OpUpload, Raw: err}
		case http.StatusForbidden:
			return &apierror.Error{Message: apierror.MessagePermissionDenied, Code: be.Code, Kind: apierror.KindPermissionDenied, Operation: OpUpload, Raw: err}
		case http.StatusConflict:
			return &apierror.Error{Message: apierror.MessageDuplicate, Code: be.Code, Kind: apierror.KindDuplicate, Operation: OpUpload, Raw: err}
		}
	}
	return apierror.Classify(err, OpUpload)
}
