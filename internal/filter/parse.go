package filter

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "property-browser/internal/common/errors"
	"property-browser/internal/models"
)

var (
	errNotANumber = errors.New("not a number")
	errOutOfRange = errors.New("out of range")
	errNegative   = errors.New("negative number not allowed")
)

// maxBound is the largest accepted numeric filter value.
const maxBound = math.MaxInt32

var nonDigits = regexp.MustCompile(`[^\d]+`)

// ParseRaw converts loosely typed form or job input into a FilterSpec.
// Unparseable, negative or zero numbers are treated as absent. Fractional
// minimums round up and fractional maximums round down. Values above
// math.MaxInt32 and an inverted price range are rejected with
// INVALID_FILTER_FORMAT.
func ParseRaw(raw map[string]interface{}) (models.FilterSpec, error) {
	var spec models.FilterSpec
	if raw == nil {
		return spec, nil
	}

	var err error
	if spec.PriceMin, err = parseIntField(raw, "priceMin", true); err != nil {
		return models.FilterSpec{}, err
	}
	if spec.PriceMax, err = parseIntField(raw, "priceMax", false); err != nil {
		return models.FilterSpec{}, err
	}
	if spec.BedroomsMin, err = parseIntField(raw, "bedroomsMin", true); err != nil {
		return models.FilterSpec{}, err
	}
	if spec.SquareFeetMin, err = parseIntField(raw, "squareFeetMin", true); err != nil {
		return models.FilterSpec{}, err
	}

	if v, ok := raw["bathroomsMin"]; ok {
		f, err := parseFloat(v)
		if err == nil && f > maxBound {
			return models.FilterSpec{}, apperrors.NewInvalidFilterFormatError(
				fmt.Sprintf("bathroomsMin %v exceeds %d", v, maxBound))
		}
		if err == nil && f > 0 {
			spec.BathroomsMin = &f
		}
	}

	if v, ok := raw["propertyTypes"]; ok {
		spec.PropertyTypes = parseStringArray(v)
	}

	if v, ok := raw["query"].(string); ok {
		spec.Query = strings.TrimSpace(v)
	}

	if spec.PriceMin != nil && spec.PriceMax != nil && *spec.PriceMin > *spec.PriceMax {
		return models.FilterSpec{}, apperrors.NewInvalidFilterFormatError(
			fmt.Sprintf("priceMin (%d) > priceMax (%d)", *spec.PriceMin, *spec.PriceMax))
	}

	return spec.Normalize(), nil
}

// parseIntField reads key as a whole-number bound. roundUp selects ceiling
// for minimums; maximums round down. Only an out-of-range value is an error.
func parseIntField(raw map[string]interface{}, key string, roundUp bool) (*int, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	n, err := parseInt(v, roundUp)
	if errors.Is(err, errOutOfRange) {
		return nil, apperrors.NewInvalidFilterFormatError(fmt.Sprintf("%s %v exceeds %d", key, v, maxBound))
	}
	if err != nil || n == 0 {
		return nil, nil
	}
	return &n, nil
}

func parseStringArray(raw interface{}) []string {
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case []string:
		items = v
	}

	var result []string
	seen := make(map[string]bool)
	for _, s := range items {
		trimmed := strings.TrimSpace(s)
		if trimmed != "" && !seen[trimmed] {
			result = append(result, trimmed)
			seen[trimmed] = true
		}
	}
	return result
}

func parseInt(raw interface{}, roundUp bool) (int, error) {
	switch v := raw.(type) {
	case float64:
		return toBound(v, roundUp)
	case int:
		return toBound(float64(v), roundUp)
	case int64:
		return toBound(float64(v), roundUp)
	case string:
		// "$450,000.00" -> 450000
		cleaned := strings.NewReplacer(" ", "", "$", "", "USD", "", ",", "").Replace(v)
		if strings.HasPrefix(cleaned, "-") {
			return 0, errNegative
		}
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return toBound(f, roundUp)
		}
		if i := strings.Index(cleaned, "."); i >= 0 {
			cleaned = cleaned[:i]
		}
		cleaned = nonDigits.ReplaceAllString(cleaned, "")
		if cleaned == "" {
			return 0, errNotANumber
		}
		num, err := strconv.Atoi(cleaned)
		if errors.Is(err, strconv.ErrRange) {
			return 0, errOutOfRange
		}
		if err != nil {
			return 0, fmt.Errorf("strconv.Atoi failed: %w", err)
		}
		return toBound(float64(num), roundUp)
	default:
		return 0, errNotANumber
	}
}

func toBound(f float64, roundUp bool) (int, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, -1):
		return 0, errNotANumber
	case f < 0:
		return 0, errNegative
	case f > maxBound:
		return 0, errOutOfRange
	case roundUp:
		return int(math.Ceil(f)), nil
	default:
		return int(math.Floor(f)), nil
	}
}

func parseFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errNotANumber
		}
		return f, nil
	default:
		return 0, errNotANumber
	}
}
