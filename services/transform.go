package services

import (
	"context"

	"go.uber.org/zap"

	"invite-digest/config"
	"invite-digest/models"
)

// Herkunft des Ratings im Ergebnis
const (
	RatingFromText       = "text"
	RatingFromRestaurant = "restaurant_rating"
	RatingMissing        = "none"
)

// Trace beschreibt, welche Fallbacks bei einer Transformation gegriffen haben.
type Trace struct {
	RatingSource string
	Nested       NestedState
}

// TransformOptions enthält die Platzhalter für fehlende Werte
type TransformOptions struct {
	FoodTypeDefault        string
	DescriptionPlaceholder string
	RatingPlaceholder      string
	LooseKeyMatch          bool
}

// FieldMapProvider liefert die aktuell gültige Key-Konfiguration
type FieldMapProvider interface {
	Current() *config.FieldMap
}

// TransformService setzt Normalizer, Extractor und Assembler zusammen.
// Er hält keinen Zustand zwischen zwei Aufrufen.
type TransformService struct {
	Logger     *zap.Logger
	fields     FieldMapProvider
	normalizer *FieldNormalizer
	extractor  *TextExtractor
	opts       TransformOptions
}

func NewTransformService(logger *zap.Logger, fields FieldMapProvider, opts TransformOptions) *TransformService {
	return &TransformService{
		Logger:     logger,
		fields:     fields,
		normalizer: NewFieldNormalizer(logger, opts.LooseKeyMatch),
		extractor:  NewTextExtractor(logger, opts.DescriptionPlaceholder),
		opts:       opts,
	}
}

// OptionsFromConfig übernimmt die Platzhalter aus der Umgebungskonfiguration
func OptionsFromConfig(cfg *config.Config) TransformOptions {
	return TransformOptions{
		FoodTypeDefault:        cfg.FoodTypeDefault,
		DescriptionPlaceholder: cfg.DescriptionPlaceholder,
		RatingPlaceholder:      cfg.RatingPlaceholder,
		LooseKeyMatch:          cfg.LooseKeyMatch,
	}
}

// Transform erzeugt aus einem beliebig geformten Input-Record den flachen Digest.
// Die Funktion schlägt nie fehl; fehlende Werte werden durch Defaults ersetzt.
func (ts *TransformService) Transform(ctx context.Context, input map[string]any) (*models.Digest, Trace) {
	if input == nil {
		input = map[string]any{}
	}
	fm := ts.fields.Current()
	if fm == nil {
		fm = config.DefaultFieldMap()
	}
	n := ts.normalizer

	nested, state := n.DecodeNested(input, fm)
	resolve := func(field, def string) string {
		fk := fm.Keys(field)
		if v := n.Resolve(input, fk.Keys, ""); v != "" {
			return v
		}
		if fk.Nested != "" {
			if v := stringify(nested[fk.Nested]); v != "" {
				return v
			}
		}
		if fk.Default != "" {
			return fk.Default
		}
		return def
	}

	output := resolve(config.FieldOutput, "")
	description, rating := ts.extractor.Extract(output)

	trace := Trace{RatingSource: RatingFromText, Nested: state}
	if rating == "" {
		if r := resolve(config.FieldRestaurantRating, ""); r != "" {
			rating = r
			trace.RatingSource = RatingFromRestaurant
		} else {
			rating = ts.opts.RatingPlaceholder
			trace.RatingSource = RatingMissing
		}
	}

	digest := &models.Digest{
		Description:      description,
		Rating:           rating,
		FoodType:         resolve(config.FieldFoodType, ts.opts.FoodTypeDefault),
		FriendMessage:    resolve(config.FieldFriendMessage, ""),
		EventName:        resolve(config.FieldEventName, ""),
		Restaurant:       resolve(config.FieldRestaurant, ""),
		DateTime:         resolve(config.FieldDateTime, ""),
		ComparisonMetric: resolve(config.FieldComparisonMetric, ""),
		MaxWords:         resolve(config.FieldMaxWords, ""),
		Emails:           n.ResolveList(input, fm.Keys(config.FieldEmails).Keys),
		RawOutput:        output,
	}

	ts.Logger.Debug("Record transformed",
		zap.String("rating_source", trace.RatingSource),
		zap.String("nested_payload", string(trace.Nested)),
		zap.Int("emails", len(digest.Emails)),
	)
	return digest, trace
}
