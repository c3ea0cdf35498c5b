package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tiger/traffic-signal-controller/internal/signal"
)

type cityCreateRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (r cityCreateRequest) validate() error {
	if r.Name == "" || r.Code == "" {
		return fmt.Errorf("name and code are required")
	}
	return nil
}

type areaCreateRequest struct {
	CityID int64  `json:"city_id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
}

func (r areaCreateRequest) validate() error {
	if r.CityID <= 0 {
		return fmt.Errorf("city_id must be >0")
	}
	if r.Name == "" || r.Code == "" {
		return fmt.Errorf("name and code are required")
	}
	return nil
}

type intersectionCreateRequest struct {
	AreaID   int64  `json:"area_id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Location string `json:"location"`
}

func (r intersectionCreateRequest) validate() error {
	if r.AreaID <= 0 {
		return fmt.Errorf("area_id must be >0")
	}
	if r.Name == "" || r.Code == "" {
		return fmt.Errorf("name and code are required")
	}
	return nil
}

type cityView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type areaView struct {
	ID     int64  `json:"id"`
	CityID int64  `json:"city_id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
}

type intersectionView struct {
	ID         int64  `json:"id"`
	AreaID     int64  `json:"area_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Location   string `json:"location"`
	IsFavorite bool   `json:"is_favorite"`
}

func (s *Server) handleCreateCity(w http.ResponseWriter, r *http.Request) {
	var req cityCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	city, err := s.directory.CreateCity(r.Context(), req.Name, req.Code)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCityView(city))
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.directory.ListCities(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	out := make([]cityView, 0, len(cities))
	for _, c := range cities {
		out = append(out, toCityView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	var req areaCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	area, err := s.directory.CreateArea(r.Context(), req.CityID, req.Name, req.Code)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAreaView(area))
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.directory.ListAreas(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	out := make([]areaView, 0, len(areas))
	for _, a := range areas {
		out = append(out, toAreaView(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIntersection(w http.ResponseWriter, r *http.Request) {
	var req intersectionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ix, err := s.directory.CreateIntersection(r.Context(), req.AreaID, req.Name, req.Code, req.Location)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIntersectionView(ix))
}

func (s *Server) handleListIntersections(w http.ResponseWriter, r *http.Request) {
	intersections, err := s.directory.ListIntersections(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	out := make([]intersectionView, 0, len(intersections))
	for _, ix := range intersections {
		out = append(out, toIntersectionView(ix))
	}
	writeJSON(w, http.StatusOK, out)
}

func toCityView(c signal.City) cityView {
	return cityView{ID: c.ID, Name: c.Name, Code: c.Code}
}

func toAreaView(a signal.TrafficArea) areaView {
	return areaView{ID: a.ID, CityID: a.CityID, Name: a.Name, Code: a.Code}
}

func toIntersectionView(ix signal.Intersection) intersectionView {
	return intersectionView{
		ID:         ix.ID,
		AreaID:     ix.AreaID,
		Name:       ix.Name,
		Code:       ix.Code,
		Location:   ix.Location,
		IsFavorite: ix.IsFavorite,
	}
}
