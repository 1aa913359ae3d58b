package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foodshare/internal/foodapi"
	"foodshare/internal/imagehost"
	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

const dateLayout = "2006-01-02"

func validateFoodForm(f types.FoodForm) map[string]string {
	errs := map[string]string{}

	if !required(f.Name) {
		errs["name"] = "Food name is required."
	}

	if day := expireDay(f.ExpireDate); day != "" {
		if _, err := time.Parse(dateLayout, day); err != nil {
			errs["expire_date"] = "Enter a valid date."
		}
	}

	return errs
}

// expireDay keeps the calendar date of a date or datetime input.
func expireDay(v string) string {
	day, _, _ := strings.Cut(strings.TrimSpace(v), "T")
	return day
}

func (s *Service) renderFoodForm(w http.ResponseWriter, r *http.Request, status int, data *types.FoodFormPageData) {
	if err := s.renderStatus(w, r, status, "page.food-form", data); err != nil {
		s.logger.WithError(err).Error("failed to render food form")
		s.internalServerError(w)
	}
}

func addFoodPageData(form types.FoodForm) *types.FoodFormPageData {
	return &types.FoodFormPageData{
		BasePageData: types.BasePageData{Title: "Add Food"},
		Action:       "/add-food",
		SubmitLabel:  "Add Food",
		Form:         form,
	}
}

func (s *Service) handleGetAddFood(w http.ResponseWriter, r *http.Request) {
	s.renderFoodForm(w, r, http.StatusOK, addFoodPageData(types.FoodForm{}))
}

func (s *Service) handlePostAddFood(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	maxBytes := s.config.MaxUploadSizeMiB << 20
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.logger.WithError(err).Warn("failed to parse add food form")
		data := addFoodPageData(types.FoodForm{})
		data.Error = "The upload is too large or malformed."
		s.renderFoodForm(w, r, http.StatusRequestEntityTooLarge, data)
		return
	}

	var form types.FoodForm
	if err := decoder.Decode(&form, r.Form); err != nil {
		s.logger.WithError(err).Error("failed to decode add food form")
		s.internalServerError(w)
		return
	}

	data := addFoodPageData(form)
	data.FieldErrors = validateFoodForm(form)
	if len(data.FieldErrors) > 0 {
		data.Error = "Please fix the highlighted fields."
		s.renderFoodForm(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	imageURL, err := s.uploadFormImage(r)
	if err != nil {
		if errors.Is(err, imagehost.ErrNotImage) {
			data.FieldErrors["image"] = "Choose an image file."
			data.Error = "Please fix the highlighted fields."
			s.renderFoodForm(w, r, http.StatusUnprocessableEntity, data)
			return
		}
		s.logger.WithError(err).Error("failed to upload food image")
		data.Error = "Image upload failed. Please try again."
		s.renderFoodForm(w, r, http.StatusBadGateway, data)
		return
	}

	sess := identityFrom(r).Session()
	user := sess.User

	input := types.FoodInput{
		Name:           strings.TrimSpace(form.Name),
		Image:          utils.NonEmptyPtr(imageURL),
		QuantityText:   strings.TrimSpace(form.QuantityText),
		QuantityNumber: types.ParseQuantity(form.QuantityText, 0),
		PickupLocation: strings.TrimSpace(form.PickupLocation),
		ExpireDate:     utils.NonEmptyPtr(expireDay(form.ExpireDate)),
		Notes:          strings.TrimSpace(form.Notes),
		Donator: types.Donator{
			Name:  user.DisplayName,
			Email: user.Email,
			Photo: user.PhotoURL,
			UID:   utils.NonEmptyPtr(user.UID),
		},
		Status:    types.FoodStatusAvailable,
		CreatedAt: time.Now().UTC(),
	}

	food, err := s.foods.CreateFood(ctx, input, sess)
	if err != nil {
		s.logger.WithError(err).Error("failed to create food")
		data.Error = foodapi.Message(err, "Error while adding food")
		s.renderFoodForm(w, r, http.StatusBadGateway, data)
		return
	}

	if food != nil {
		s.logger.WithField("food_id", food.ID).Info("food created")
	}

	s.redirectWithNotice(w, r, "/my-foods", "Food added successfully")
}

// uploadFormImage uploads the optional image field and returns its URL, or
// "" when no file was chosen.
func (s *Service) uploadFormImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", nil
	}

	return s.uploader.Upload(r.Context(), imagehost.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        raw,
	})
}

func updateFoodPageData(id string, form types.FoodForm) *types.FoodFormPageData {
	return &types.FoodFormPageData{
		BasePageData: types.BasePageData{Title: "Update Food"},
		FoodID:       id,
		Action:       "/update-food/" + url.PathEscape(id),
		SubmitLabel:  "Update Food",
		Form:         form,
	}
}

func (s *Service) handleGetUpdateFood(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	foodID := r.PathValue("id")

	food, err := s.foods.GetFood(ctx, foodID)
	if errors.Is(err, types.ErrFoodNotFound) {
		s.redirectWithError(w, r, "/my-foods", "Food not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("food_id", foodID).Error("failed to load food for update")
		s.redirectWithError(w, r, "/my-foods", "Failed to load food")
		return
	}

	if !food.OwnedBy(identityFrom(r).User()) {
		s.redirectWithError(w, r, foodPath(foodID), "Not allowed")
		return
	}

	form := types.FoodForm{
		Name:           food.Name,
		QuantityText:   food.QuantityText,
		PickupLocation: food.PickupLocation,
		ExpireDate:     food.ExpireDay(),
		Notes:          food.Notes,
		ImageURL:       food.Image,
	}

	s.renderFoodForm(w, r, http.StatusOK, updateFoodPageData(foodID, form))
}

func (s *Service) handlePostUpdateFood(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	foodID := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, "/my-foods", "Invalid form submission")
		return
	}

	var form types.FoodForm
	if err := decoder.Decode(&form, r.Form); err != nil {
		s.logger.WithError(err).Error("failed to decode update food form")
		s.internalServerError(w)
		return
	}

	data := updateFoodPageData(foodID, form)
	data.FieldErrors = validateFoodForm(form)
	if len(data.FieldErrors) > 0 {
		data.Error = "Please fix the highlighted fields."
		s.renderFoodForm(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	update := types.FoodUpdate{
		Name:           utils.StringPtr(strings.TrimSpace(form.Name)),
		QuantityText:   utils.StringPtr(strings.TrimSpace(form.QuantityText)),
		QuantityNumber: utils.IntPtr(types.ParseQuantity(form.QuantityText, 1)),
		PickupLocation: utils.StringPtr(strings.TrimSpace(form.PickupLocation)),
		ExpireDate:     utils.StringPtr(expireDay(form.ExpireDate)),
		Notes:          utils.StringPtr(strings.TrimSpace(form.Notes)),
	}

	if _, err := s.foods.UpdateFood(ctx, foodID, update, identityFrom(r).Session()); err != nil {
		s.logger.WithError(err).WithField("food_id", foodID).Error("failed to update food")
		data.Error = foodapi.Message(err, "Update failed")
		s.renderFoodForm(w, r, http.StatusBadGateway, data)
		return
	}

	s.redirectWithNotice(w, r, "/my-foods", "Food updated successfully")
}
