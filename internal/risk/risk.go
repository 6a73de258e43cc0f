package risk

import (
	"neowatch/internal/clients"
	"neowatch/internal/models"
)

// Analysis описывает детерминированную оценку риска 0-100 по данным провайдера.
// Чистая функция без ввода-вывода: планировщик сравнивает оценки между
// тиками, поэтому одинаковый вход обязан давать одинаковый результат.
type Analysis struct {
	Score   int              `json:"score"`
	Level   models.RiskLevel `json:"level"`
	Factors Factors          `json:"factors"`
}

type Factors struct {
	IsHazardous       bool     `json:"isHazardous"`
	MissDistanceAU    *float64 `json:"missDistance"`
	DiameterM         *float64 `json:"diameter"`
	VelocityKmS       *float64 `json:"velocity"`
	CloseApproachDate string   `json:"closeApproachDate,omitempty"`
}

func Analyze(a *clients.Asteroid) Analysis {
	score := 0

	// Фактор 1: флаг потенциальной опасности (40 баллов)
	if a.IsPotentiallyHazardous {
		score += 40
	}

	// Фактор 2: минимальная дистанция сближения (30 баллов).
	// Записи провайдера не отсортированы, выбираем строго меньшую
	// дистанцию, при равенстве остается более ранняя запись.
	closest := closestApproach(a.CloseApproachData)

	var missDistance *float64
	if len(a.CloseApproachData) > 0 {
		if closest != nil {
			d, _ := closest.MissDistanceAU()
			missDistance = &d
			switch {
			case d <= 0.05:
				score += 30
			case d <= 0.1:
				score += 20
			case d <= 0.2:
				score += 10
			default:
				score += 5
			}
		} else {
			score += 5
		}
	}

	// Фактор 3: средний диаметр (20 баллов)
	var diameter *float64
	if avg, ok := a.AvgDiameterMeters(); ok {
		diameter = &avg
		switch {
		case avg > 1000:
			score += 20
		case avg > 500:
			score += 15
		case avg > 100:
			score += 10
		default:
			score += 5
		}
	}

	// Фактор 4: скорость ПЕРВОЙ записи сближения (10 баллов).
	// Первая запись может не совпадать с ближайшей из фактора 2,
	// поведение сохранено ради совместимости оценок.
	if len(a.CloseApproachData) > 0 {
		v, _ := a.CloseApproachData[0].VelocityKmS()
		switch {
		case v > 30:
			score += 10
		case v > 20:
			score += 7
		case v > 10:
			score += 5
		default:
			score += 3
		}
	}

	if score > 100 {
		score = 100
	}

	factors := Factors{
		IsHazardous:    a.IsPotentiallyHazardous,
		MissDistanceAU: missDistance,
		DiameterM:      diameter,
	}
	if closest != nil {
		if v, ok := closest.VelocityKmS(); ok {
			factors.VelocityKmS = &v
		}
		factors.CloseApproachDate = closest.CloseApproachDateFull
	}

	return Analysis{
		Score:   score,
		Level:   LevelFor(score),
		Factors: factors,
	}
}

// LevelFor переводит оценку в категорию, границы включительные снизу
func LevelFor(score int) models.RiskLevel {
	switch {
	case score >= 75:
		return models.RiskLevelCritical
	case score >= 50:
		return models.RiskLevelHigh
	case score >= 25:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

func closestApproach(approaches []clients.CloseApproach) *clients.CloseApproach {
	var closest *clients.CloseApproach
	var closestDist float64

	for i := range approaches {
		d, ok := approaches[i].MissDistanceAU()
		if !ok {
			continue
		}
		if closest == nil || d < closestDist {
			closest = &approaches[i]
			closestDist = d
		}
	}

	return closest
}
