package property

import (
	"fmt"
	"math"
	"strconv"
)

// FormatPrice renders rupees in the crore/lakh notation buyers expect.
func FormatPrice(v int64) string {
	switch {
	case v >= 10_000_000:
		return "₹" + trimFloat(float64(v)/10_000_000) + " Cr"
	case v >= 100_000:
		return "₹" + trimFloat(float64(v)/100_000) + " L"
	default:
		return "₹" + strconv.FormatInt(v, 10)
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

func (p Property) PriceRange() string {
	if p.PriceMax <= p.PriceMin {
		return FormatPrice(p.PriceMin)
	}
	return FormatPrice(p.PriceMin) + " - " + FormatPrice(p.PriceMax)
}

func (p Property) BedroomRange() string {
	if p.BedroomsMax <= p.BedroomsMin {
		return fmt.Sprintf("%d BHK", p.BedroomsMin)
	}
	return fmt.Sprintf("%d-%d BHK", p.BedroomsMin, p.BedroomsMax)
}
