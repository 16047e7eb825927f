package validation

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/slug"
)

// Константы валидации
const (
	MinDisplayNameLength      = 2
	MaxDisplayNameLength      = 100
	MaxCategoryNameLength     = 100
	MaxCategoryDescriptionLen = 1000
	MinServiceTitleLength     = 3
	MaxServiceTitleLength     = 200
	MaxServiceDescriptionLen  = 5000
	MaxServiceTags            = 10
	MaxTagLength              = 50
	MaxServiceImages          = 5
	MaxWorkingTimeEntries     = 7
	MaxWorkingTimeEntryLength = 50
	MaxReviewCommentLength    = 2000
	MinSearchTermLength       = 2
	priceScale                = 2
)

var (
	slugRule = validation.By(func(value interface{}) error {
		raw, _ := validation.Indirect(value)
		s, _ := raw.(string)
		if s == "" || slug.Valid(s) {
			return nil
		}
		return validation.NewError("validation_slug", "slug может содержать только строчные латинские буквы, цифры и одиночные дефисы (до 100 символов)")
	})

	priceRule = validation.By(func(value interface{}) error {
		var price decimal.Decimal
		switch v := value.(type) {
		case decimal.Decimal:
			price = v
		case *decimal.Decimal:
			if v == nil {
				return nil
			}
			price = *v
		default:
			return validation.NewError("validation_price", "некорректная цена")
		}
		if !price.IsPositive() {
			return validation.NewError("validation_price", "цена должна быть больше нуля")
		}
		if !price.Equal(price.Round(priceScale)) {
			return validation.NewError("validation_price", "цена может содержать не более двух знаков после запятой")
		}
		return nil
	})

	currencyRule = []validation.Rule{
		validation.Length(3, 3).Error("код валюты должен состоять из 3 букв"),
		is.CurrencyCode.Error("неизвестный код валюты ISO 4217"),
	}

	tagsRule = []validation.Rule{
		validation.Length(0, MaxServiceTags).Error("не более 10 тегов"),
		validation.Each(
			validation.Required.Error("тег не может быть пустым"),
			validation.RuneLength(1, MaxTagLength).Error("тег не длиннее 50 символов"),
		),
	}

	imagesRule = []validation.Rule{
		validation.Length(0, MaxServiceImages).Error("не более 5 изображений"),
		validation.Each(
			validation.Required.Error("ссылка на изображение не может быть пустой"),
			is.URL.Error("изображение должно быть корректным URL"),
		),
	}

	workingTimeRule = []validation.Rule{
		validation.Length(0, MaxWorkingTimeEntries).Error("не более 7 интервалов рабочего времени"),
		validation.Each(validation.RuneLength(1, MaxWorkingTimeEntryLength)),
	}
)

// uuidRequired отклоняет нулевой UUID, который ozzo не считает пустым значением.
func uuidRequired(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
			return validation.NewError("validation_required", message)
		}
		return nil
	})
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	return validation.Validate(strings.TrimSpace(email),
		validation.Required.Error("email обязателен"),
		validation.RuneLength(3, 255).Error("email слишком длинный"),
		is.EmailFormat.Error("некорректный формат email"),
	)
}

// ValidateDisplayName проверяет отображаемое имя.
func ValidateDisplayName(displayName string) error {
	return validation.Validate(strings.TrimSpace(displayName),
		validation.Required.Error("отображаемое имя обязательно"),
		validation.RuneLength(MinDisplayNameLength, MaxDisplayNameLength).Error("отображаемое имя должно быть от 2 до 100 символов"),
	)
}

// ValidateRole проверяет роль, выбранную при регистрации.
func ValidateRole(role string) error {
	return validation.Validate(role,
		validation.Required.Error("роль обязательна"),
		validation.In(models.RoleCustomer, models.RoleProvider).Error("роль должна быть customer или provider"),
	)
}

// ValidateSlug проверяет формат slug категории.
func ValidateSlug(s string) error {
	return validation.Validate(s,
		validation.Required.Error("slug обязателен"),
		slugRule,
	)
}

// ValidateCreateCategory проверяет данные новой категории.
func ValidateCreateCategory(in models.CreateCategoryInput) error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Slug, validation.Required.Error("slug обязателен"), slugRule),
		validation.Field(&in.Name, validation.NilOrNotEmpty.Error("название не может быть пустым"),
			validation.RuneLength(1, MaxCategoryNameLength).Error("название не длиннее 100 символов")),
		validation.Field(&in.Description, validation.RuneLength(0, MaxCategoryDescriptionLen).Error("описание не длиннее 1000 символов")),
	)
}

// ValidateCategoryPatch проверяет переданные поля патча категории.
func ValidateCategoryPatch(p models.CategoryPatch) error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Slug, validation.NilOrNotEmpty.Error("slug не может быть пустым"), slugRule),
		validation.Field(&p.Name, validation.NilOrNotEmpty.Error("название не может быть пустым"),
			validation.RuneLength(1, MaxCategoryNameLength).Error("название не длиннее 100 символов")),
		validation.Field(&p.Description, validation.RuneLength(0, MaxCategoryDescriptionLen).Error("описание не длиннее 1000 символов")),
		validation.Field(&p.ParentID, validation.When(p.ClearParent,
			validation.Nil.Error("нельзя одновременно задать parent_id и перенести категорию в корень"))),
	)
}

// ValidateCreateService проверяет данные новой услуги.
// Currency ожидается уже в верхнем регистре.
func ValidateCreateService(in models.CreateServiceInput) error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title,
			validation.Required.Error("название услуги обязательно"),
			validation.RuneLength(MinServiceTitleLength, MaxServiceTitleLength).Error("название услуги должно быть от 3 до 200 символов"),
		),
		validation.Field(&in.Description, validation.RuneLength(0, MaxServiceDescriptionLen).Error("описание не длиннее 5000 символов")),
		validation.Field(&in.Price, priceRule),
		validation.Field(&in.Currency, append([]validation.Rule{validation.Required.Error("валюта обязательна")}, currencyRule...)...),
		validation.Field(&in.CategoryID, uuidRequired("категория обязательна")),
		validation.Field(&in.ProviderID, uuidRequired("исполнитель обязателен")),
		validation.Field(&in.Tags, tagsRule...),
		validation.Field(&in.Images, imagesRule...),
		validation.Field(&in.WorkingTime, workingTimeRule...),
	)
}

// ValidateServicePatch проверяет переданные поля патча услуги.
func ValidateServicePatch(p models.ServicePatch) error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title,
			validation.NilOrNotEmpty.Error("название услуги не может быть пустым"),
			validation.RuneLength(MinServiceTitleLength, MaxServiceTitleLength).Error("название услуги должно быть от 3 до 200 символов"),
		),
		validation.Field(&p.Description, validation.RuneLength(0, MaxServiceDescriptionLen).Error("описание не длиннее 5000 символов")),
		validation.Field(&p.Price, priceRule),
		validation.Field(&p.Currency, append([]validation.Rule{validation.NilOrNotEmpty.Error("валюта не может быть пустой")}, currencyRule...)...),
		validation.Field(&p.Tags, tagsRule...),
		validation.Field(&p.Images, imagesRule...),
		validation.Field(&p.WorkingTime, workingTimeRule...),
	)
}

// ValidateReview проверяет оценку и комментарий отзыва.
func ValidateReview(in models.SubmitReviewInput) error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Rating,
			validation.Required.Error("оценка обязательна"),
			validation.Min(models.MinRating).Error("оценка должна быть от 1 до 5"),
			validation.Max(models.MaxRating).Error("оценка должна быть от 1 до 5"),
		),
		validation.Field(&in.ReviewerID, uuidRequired("автор отзыва обязателен")),
		validation.Field(&in.RevieweeID, uuidRequired("получатель отзыва обязателен")),
		validation.Field(&in.Comment, validation.RuneLength(0, MaxReviewCommentLength).Error("комментарий не длиннее 2000 символов")),
	)
}

// NormalizeSearchTerm обрезает пробелы и проверяет минимальную длину запроса.
func NormalizeSearchTerm(term string) (string, error) {
	term = strings.TrimSpace(term)
	err := validation.Validate(term,
		validation.Required.Error("поисковый запрос обязателен"),
		validation.RuneLength(MinSearchTermLength, 0).Error("поисковый запрос должен содержать не менее 2 символов"),
	)
	return term, err
}
