package clients

import (
	"encoding/json"
	"strconv"
)

// Asteroid представляет документ NeoWs в типизированном виде.
// Полный исходный документ сохраняется в raw: для БД и для ответов API
// он отдается как есть, типизированы только поля, нужные оценке риска.
type Asteroid struct {
	ID                     string             `json:"id"`
	NeoReferenceID         string             `json:"neo_reference_id"`
	Name                   string             `json:"name"`
	IsPotentiallyHazardous bool               `json:"is_potentially_hazardous_asteroid"`
	EstimatedDiameter      *EstimatedDiameter `json:"estimated_diameter"`
	CloseApproachData      []CloseApproach    `json:"close_approach_data"`

	raw json.RawMessage
}

type EstimatedDiameter struct {
	Meters *DiameterRange `json:"meters"`
}

type DiameterRange struct {
	Min float64 `json:"estimated_diameter_min"`
	Max float64 `json:"estimated_diameter_max"`
}

type CloseApproach struct {
	CloseApproachDate     string `json:"close_approach_date"`
	CloseApproachDateFull string `json:"close_approach_date_full"`
	RelativeVelocity      struct {
		KilometersPerSecond string `json:"kilometers_per_second"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Astronomical string `json:"astronomical"`
	} `json:"miss_distance"`
}

func (a *Asteroid) UnmarshalJSON(data []byte) error {
	type alias Asteroid
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*a = Asteroid(tmp)
	a.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (a *Asteroid) MarshalJSON() ([]byte, error) {
	if len(a.raw) > 0 {
		return a.raw, nil
	}
	type alias Asteroid
	return json.Marshal((*alias)(a))
}

// Raw возвращает исходный документ провайдера
func (a *Asteroid) Raw() json.RawMessage { return a.raw }

// MissDistanceAU парсит дистанцию в а.е.; NeoWs отдает число строкой
func (ca CloseApproach) MissDistanceAU() (float64, bool) {
	v, err := strconv.ParseFloat(ca.MissDistance.Astronomical, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// VelocityKmS парсит относительную скорость в км/с
func (ca CloseApproach) VelocityKmS() (float64, bool) {
	v, err := strconv.ParseFloat(ca.RelativeVelocity.KilometersPerSecond, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// AvgDiameterMeters возвращает среднее между минимальной и максимальной оценкой
func (a *Asteroid) AvgDiameterMeters() (float64, bool) {
	if a.EstimatedDiameter == nil || a.EstimatedDiameter.Meters == nil {
		return 0, false
	}
	m := a.EstimatedDiameter.Meters
	return (m.Min + m.Max) / 2, true
}

type FeedResponse struct {
	ElementCount     int                    `json:"element_count"`
	NearEarthObjects map[string][]*Asteroid `json:"near_earth_objects"`
}

type BrowsePage struct {
	Page struct {
		Size          int `json:"size"`
		TotalElements int `json:"total_elements"`
		TotalPages    int `json:"total_pages"`
		Number        int `json:"number"`
	} `json:"page"`
	NearEarthObjects []*Asteroid `json:"near_earth_objects"`
}
