package dispatch

import (
	"math"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
)

// Default coordinates used when a shop or driver has no known position.
// Central Doha; the service area is small enough that a planar fallback
// produces a sane assignment rather than an error.
const (
	defaultShopLat   = 25.2854
	defaultShopLng   = 51.5310
	defaultDriverLat = 25.28
	defaultDriverLng = 51.53
)

// point is a planar coordinate pair.
type point struct {
	lat float64
	lng float64
}

func shopPoint(shop *models.Shop) point {
	if shop == nil || (shop.Lat == 0 && shop.Lng == 0) {
		return point{lat: defaultShopLat, lng: defaultShopLng}
	}
	return point{lat: shop.Lat, lng: shop.Lng}
}

func driverPoint(driver models.Driver) point {
	if driver.Lat == 0 && driver.Lng == 0 {
		return point{lat: defaultDriverLat, lng: defaultDriverLng}
	}
	return point{lat: driver.Lat, lng: driver.Lng}
}

// planarDistance is a Euclidean approximation over raw degrees. Over a
// service area the size of Doha the error versus haversine is negligible,
// and the ordering of candidates is what matters here. A geodesic metric is
// a drop-in replacement behind nearestCandidate.
func planarDistance(a, b point) float64 {
	dLat := a.lat - b.lat
	dLng := a.lng - b.lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// nearestCandidate picks the driver closest to the shop. The first candidate
// in slice order wins a distance tie, so the selection is deterministic for
// a fixed candidate fetch order.
func nearestCandidate(shop *models.Shop, candidates []models.Driver) (models.Driver, bool) {
	if len(candidates) == 0 {
		return models.Driver{}, false
	}
	anchor := shopPoint(shop)
	best := 0
	bestDistance := planarDistance(anchor, driverPoint(candidates[0]))
	for i := 1; i < len(candidates); i++ {
		distance := planarDistance(anchor, driverPoint(candidates[i]))
		if distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	return candidates[best], true
}
