package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/storage"
	"github.com/geocoder89/househub/internal/utils"
	"github.com/gin-gonic/gin"
)

const imagesField = "images"

type HouseStore interface {
	Create(ctx context.Context, h house.House) (house.House, error)
	List(ctx context.Context, page utils.Page) ([]house.House, int, error)
	GetByID(ctx context.Context, id int64) (house.House, error)
	Update(ctx context.Context, id int64, u house.Update) (house.House, []string, error)
	Delete(ctx context.Context, id int64) (house.House, error)
}

type ImageStore interface {
	SaveAll(files []*multipart.FileHeader) ([]string, error)
}

type ImagePurger interface {
	Purge(ctx context.Context, paths []string) int
	Discard(paths []string)
}

// UploadCounter is satisfied by *observability.Prom; nil disables counting.
type UploadCounter interface {
	IncUploads(result string, n int)
}

type HousesHandler struct {
	houses  HouseStore
	images  ImageStore
	purger  ImagePurger
	uploads UploadCounter
	now     func() time.Time
}

func NewHousesHandler(houses HouseStore, images ImageStore, purger ImagePurger, uploads UploadCounter) *HousesHandler {
	return &HousesHandler{
		houses:  houses,
		images:  images,
		purger:  purger,
		uploads: uploads,
		now:     time.Now,
	}
}

func (h *HousesHandler) CreateHouse(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	var req house.FormRequest
	if !BindForm(ctx, &req) {
		return
	}

	fields, err := req.Parse()
	if err != nil {
		RespondBadRequest(ctx, "Invalid form data", gin.H{"reason": err.Error()})
		return
	}

	if !mayActForOwner(claims, fields.OwnerID) {
		RespondForbidden(ctx, "Owners can only post listings for themselves")
		return
	}

	files := uploadedImages(ctx)
	if len(files) == 0 {
		RespondBadRequest(ctx, "At least one image is required", gin.H{
			"fields": []FieldError{{Field: imagesField, Rule: "required", Message: "is required"}},
		})
		return
	}

	paths, ok := h.saveImages(ctx, files)
	if !ok {
		return
	}

	listing, err := house.NewHouse(fields, paths, h.now())
	if err != nil {
		h.discard(paths)
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	created, err := h.houses.Create(cctx, listing)
	if err != nil {
		h.discard(paths)
		RespondInternal(ctx, "Could not create house", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "House created successfully.",
		"house":   created,
	})
}

func (h *HousesHandler) ListHouses(ctx *gin.Context) {
	page, err := utils.ParsePage(ctx.Query("page"), ctx.Query("limit"))
	if err != nil {
		RespondBadRequest(ctx, "Invalid pagination parameters", gin.H{"reason": err.Error()})
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	houses, total, err := h.houses.List(cctx, page)
	if err != nil {
		RespondInternal(ctx, "Could not list houses", err)
		return
	}

	body := gin.H{
		"houses": houses,
		"pagination": gin.H{
			"totalHouses": total,
			"totalPages":  page.TotalPages(total),
			"currentPage": page.Page,
			"limit":       page.Limit,
		},
	}
	if len(houses) == 0 {
		body["message"] = "No houses found"
	}

	respondCacheable(ctx, http.StatusOK, body)
}

func (h *HousesHandler) GetHouse(ctx *gin.Context) {
	id, ok := houseIDParam(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	listing, err := h.houses.GetByID(cctx, id)
	if err != nil {
		respondHouseError(ctx, err, "Could not fetch house")
		return
	}

	respondCacheable(ctx, http.StatusOK, listing)
}

// UpdateHouse replaces every field and the whole image set with what this
// request carries. Images left out are deleted once the update commits.
func (h *HousesHandler) UpdateHouse(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	id, ok := houseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req house.FormRequest
	if !BindForm(ctx, &req) {
		return
	}

	fields, err := req.Parse()
	if err != nil {
		RespondBadRequest(ctx, "Invalid form data", gin.H{"reason": err.Error()})
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	current, err := h.houses.GetByID(cctx, id)
	if err != nil {
		respondHouseError(ctx, err, "Could not update house")
		return
	}

	if !mayActForOwner(claims, current.OwnerID) || !mayActForOwner(claims, fields.OwnerID) {
		RespondForbidden(ctx, "Owners can only modify their own listings")
		return
	}

	paths, ok := h.saveImages(ctx, uploadedImages(ctx))
	if !ok {
		return
	}

	updated, removed, err := h.houses.Update(cctx, id, house.Update{Fields: fields, Images: paths})
	if err != nil {
		h.discard(paths)
		respondHouseError(ctx, err, "Could not update house")
		return
	}

	h.purger.Purge(cctx, removed)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "House updated successfully",
		"data":    updated,
	})
}

func (h *HousesHandler) DeleteHouse(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	id, ok := houseIDParam(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	current, err := h.houses.GetByID(cctx, id)
	if err != nil {
		respondHouseError(ctx, err, "Could not delete house")
		return
	}

	if !mayActForOwner(claims, current.OwnerID) {
		RespondForbidden(ctx, "Owners can only delete their own listings")
		return
	}

	deleted, err := h.houses.Delete(cctx, id)
	if err != nil {
		respondHouseError(ctx, err, "Could not delete house")
		return
	}

	h.purger.Purge(cctx, deleted.Images)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "House and associated images deleted successfully",
		"data":    deleted,
	})
}

func (h *HousesHandler) saveImages(ctx *gin.Context, files []*multipart.FileHeader) ([]string, bool) {
	if len(files) == 0 {
		return []string{}, true
	}

	paths, err := h.images.SaveAll(files)
	if err == nil {
		h.count("stored", len(paths))
		return paths, true
	}

	h.count("rejected", len(files))

	switch {
	case errors.Is(err, storage.ErrInvalidFileType):
		RespondBadRequest(ctx, "Invalid image upload", imageDetails(err, "type"))
	case errors.Is(err, storage.ErrFileTooLarge):
		RespondBadRequest(ctx, "Invalid image upload", imageDetails(err, "max_size"))
	case errors.Is(err, storage.ErrTooManyFiles):
		RespondBadRequest(ctx, "Invalid image upload", imageDetails(err, "max_files"))
	default:
		RespondInternal(ctx, "Could not store images", err)
	}
	return nil, false
}

func imageDetails(err error, rule string) gin.H {
	fe := FieldError{Field: imagesField, Rule: rule, Message: err.Error()}
	var fileErr *storage.FileError
	if errors.As(err, &fileErr) {
		fe.Param = fileErr.Filename
		fe.Message = fileErr.Err.Error()
	}
	return gin.H{"fields": []FieldError{fe}}
}

func (h *HousesHandler) discard(paths []string) {
	if len(paths) == 0 {
		return
	}
	h.purger.Discard(paths)
	h.count("discarded", len(paths))
}

func (h *HousesHandler) count(result string, n int) {
	if h.uploads != nil {
		h.uploads.IncUploads(result, n)
	}
}

func uploadedImages(ctx *gin.Context) []*multipart.FileHeader {
	form, err := ctx.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[imagesField]
}

// mayActForOwner lets staff act on any listing and owners only on their own.
func mayActForOwner(claims *auth.Claims, ownerID int64) bool {
	if claims.Role == auth.RoleOwner {
		return claims.UserID == ownerID
	}
	return true
}

func houseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := utils.ParseID(ctx.Param(name))
	if err != nil {
		RespondBadRequest(ctx, "Invalid house id", gin.H{"field": name, "reason": err.Error()})
		return 0, false
	}
	return id, true
}

func respondHouseError(ctx *gin.Context, err error, message string) {
	if errors.Is(err, house.ErrNotFound) {
		RespondNotFound(ctx, "House not found")
		return
	}
	RespondInternal(ctx, message, err)
}
