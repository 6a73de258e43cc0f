package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"neowatch/internal/clients"
	"neowatch/internal/repository"
	"neowatch/internal/risk"
)

type NEOService interface {
	GetFeed(ctx context.Context, startDate, endDate string) (map[string]interface{}, error)
	GetAsteroid(ctx context.Context, asteroidID string) (map[string]interface{}, error)
	Browse(ctx context.Context, page, size int) (map[string]interface{}, error)
}

type neoService struct {
	cacheRepo repository.CacheRepository
	client    clients.NEOClient
}

func NewNEOService(cacheRepo repository.CacheRepository, client clients.NEOClient) NEOService {
	return &neoService{
		cacheRepo: cacheRepo,
		client:    client,
	}
}

func (s *neoService) GetFeed(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
	// Если даты не заданы, берем сегодняшний день
	today := time.Now().UTC().Format("2006-01-02")
	if startDate == "" {
		startDate = today
	}
	if endDate == "" {
		endDate = today
	}

	cacheKey := fmt.Sprintf("neo:feed:%s:%s", startDate, endDate)

	var cached map[string]interface{}
	if err := s.cacheRepo.GetJSON(ctx, cacheKey, &cached); err == nil && cached != nil {
		return cached, nil
	}

	feed, err := s.client.FetchFeed(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	// К каждому объекту добавляем оценку риска
	objectsByDate := make(map[string]interface{}, len(feed.NearEarthObjects))
	for date, asteroids := range feed.NearEarthObjects {
		annotated := make([]map[string]interface{}, 0, len(asteroids))
		for _, a := range asteroids {
			doc, err := annotateWithRisk(a)
			if err != nil {
				return nil, fmt.Errorf("failed to annotate asteroid: %w", err)
			}
			annotated = append(annotated, doc)
		}
		objectsByDate[date] = annotated
	}

	result := map[string]interface{}{
		"element_count":      feed.ElementCount,
		"near_earth_objects": objectsByDate,
	}

	if err := s.cacheRepo.SetJSON(ctx, cacheKey, result, time.Hour); err != nil {
		log.Printf("Failed to cache NEO feed: %v", err)
	}

	return result, nil
}

func (s *neoService) GetAsteroid(ctx context.Context, asteroidID string) (map[string]interface{}, error) {
	cacheKey := "neo:lookup:" + asteroidID

	var cached map[string]interface{}
	if err := s.cacheRepo.GetJSON(ctx, cacheKey, &cached); err == nil && cached != nil {
		return cached, nil
	}

	asteroid, err := s.client.FetchByID(ctx, asteroidID)
	if err != nil {
		return nil, err
	}

	doc, err := annotateWithRisk(asteroid)
	if err != nil {
		return nil, fmt.Errorf("failed to annotate asteroid: %w", err)
	}

	if err := s.cacheRepo.SetJSON(ctx, cacheKey, doc, 30*time.Minute); err != nil {
		log.Printf("Failed to cache NEO lookup: %v", err)
	}

	return doc, nil
}

func (s *neoService) Browse(ctx context.Context, page, size int) (map[string]interface{}, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 || size > 100 {
		size = 20
	}

	cacheKey := fmt.Sprintf("neo:browse:%d:%d", page, size)

	var cached map[string]interface{}
	if err := s.cacheRepo.GetJSON(ctx, cacheKey, &cached); err == nil && cached != nil {
		return cached, nil
	}

	browse, err := s.client.Browse(ctx, page, size)
	if err != nil {
		return nil, err
	}

	annotated := make([]map[string]interface{}, 0, len(browse.NearEarthObjects))
	for _, a := range browse.NearEarthObjects {
		doc, err := annotateWithRisk(a)
		if err != nil {
			return nil, fmt.Errorf("failed to annotate asteroid: %w", err)
		}
		annotated = append(annotated, doc)
	}

	result := map[string]interface{}{
		"page":               browse.Page,
		"near_earth_objects": annotated,
	}

	if err := s.cacheRepo.SetJSON(ctx, cacheKey, result, time.Hour); err != nil {
		log.Printf("Failed to cache NEO browse: %v", err)
	}

	return result, nil
}

// annotateWithRisk раскрывает исходный документ провайдера и
// добавляет к нему поле risk_analysis
func annotateWithRisk(a *clients.Asteroid) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(a.Raw(), &doc); err != nil {
		return nil, err
	}
	doc["risk_analysis"] = risk.Analyze(a)
	return doc, nil
}
