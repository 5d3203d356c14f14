// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/bookyard/base/log"
	"github.com/gorse-io/bookyard/config"
	"github.com/gorse-io/bookyard/dataset"
	"github.com/gorse-io/bookyard/logics"
	"github.com/gorse-io/bookyard/storage"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RestServer implements the REST-ful API server.
type RestServer struct {
	Engine     *logics.Engine
	Catalog    *storage.Catalog
	Config     *config.Config
	WebService *restful.WebService

	recommendCache *ttlcache.Cache[string, RecommendResponse]
}

// NewRestServer creates a server around an engine and a book catalog.
func NewRestServer(cfg *config.Config, engine *logics.Engine, catalog *storage.Catalog) *RestServer {
	s := &RestServer{
		Engine:         engine,
		Catalog:        catalog,
		Config:         cfg,
		WebService:     new(restful.WebService),
		recommendCache: ttlcache.New(ttlcache.WithTTL[string, RecommendResponse](cfg.Server.CacheExpire)),
	}
	go s.recommendCache.Start()
	return s
}

// StartHttpServer starts the REST-ful API server.
func (s *RestServer) StartHttpServer() {
	s.CreateWebService()
	restful.DefaultContainer.Add(s.WebService)
	// register swagger UI
	specConfig := restfulspec.Config{
		WebServices: restful.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	restful.DefaultContainer.Add(restfulspec.NewOpenAPIService(specConfig))
	// register prometheus
	http.Handle("/metrics", promhttp.Handler())

	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.Config.Server.HttpHost, s.Config.Server.HttpPort)))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(fmt.Sprintf("%s:%d", s.Config.Server.HttpHost, s.Config.Server.HttpPort), nil)))
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	responseTime := time.Since(start)
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("response_time", responseTime))
}

func RequestIDFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	resp.Header().Set("X-Request-ID", uuid.New().String())
	chain.ProcessFilter(req, resp)
}

// LoadRequest overrides the configured row limit for one load.
type LoadRequest struct {
	Nrows int `json:"nrows"`
}

// LoadResponse reports the outcome of a dataset load.
type LoadResponse struct {
	Status     string         `json:"status"`
	Message    string         `json:"message"`
	Statistics *dataset.Stats `json:"statistics,omitempty"`
}

// StatusResponse reports whether a dataset snapshot is loaded.
type StatusResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	Users        int    `json:"users,omitempty"`
	Books        int    `json:"books,omitempty"`
	TotalRatings int    `json:"total_ratings,omitempty"`
}

// RecommendRequest asks for recommendations for one user.
type RecommendRequest struct {
	UserID int `json:"user_id"`
	K      int `json:"k"`
	TopN   int `json:"top_n"`
}

// RecommendParameters echoes the neighborhood parameters actually used.
type RecommendParameters struct {
	K    int `json:"k_similar_users"`
	TopN int `json:"top_n_books"`
}

// RecommendResponse carries ranked recommendations for one user.
type RecommendResponse struct {
	Status               string                  `json:"status"`
	UserID               int                     `json:"user_id"`
	Message              string                  `json:"message,omitempty"`
	TotalRecommendations int                     `json:"total_recommendations"`
	Recommendations      []logics.Recommendation `json:"recommendations"`
	Parameters           RecommendParameters     `json:"parameters"`
}

// UsersResponse carries a sample of addressable user ids.
type UsersResponse struct {
	Status              string `json:"status"`
	TotalAvailableUsers int    `json:"total_available_users"`
	SampleUserIDs       []int  `json:"sample_user_ids"`
	LimitRequested      int    `json:"limit_requested"`
}

// HealthResponse is the liveness probe payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// Success is the payload of mutations that return no entity.
type Success struct {
	RowAffected int `json:"row_affected"`
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(RequestIDFilter)
	ws.Filter(LogFilter)

	/* Dataset lifecycle */

	// Load the rating sources
	ws.Route(ws.POST("/v1/datasets/load").To(s.loadDatasets).
		Doc("Load the book, rating and user sources and rebuild the model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"dataset"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads(LoadRequest{}).
		Writes(LoadResponse{}))
	// Get load status
	ws.Route(ws.GET("/v1/datasets/status").To(s.getStatus).
		Doc("Get the load status of the dataset.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"dataset"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(StatusResponse{}))
	// Get recommendations
	ws.Route(ws.POST("/v1/datasets/recommendations").To(s.getRecommendations).
		Doc("Get top book recommendations for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads(RecommendRequest{}).
		Writes(RecommendResponse{}))
	// Get sample users
	ws.Route(ws.GET("/v1/datasets/users").To(s.getUsers).
		Doc("Get a sample of user ids present in the loaded dataset.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"dataset"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.QueryParameter("limit", "number of returned user ids").DataType("integer")).
		Writes(UsersResponse{}))
	// Health check
	ws.Route(ws.GET("/v1/datasets/health").To(s.getHealth).
		Doc("Check server health.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"dataset"}).
		Writes(HealthResponse{}))

	/* Book catalog */

	// Insert a book
	ws.Route(ws.POST("/books").To(s.insertBook).
		Doc("Insert a book into the catalog.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"book"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads(storage.Book{}).
		Writes(storage.Book{}))
	// Get books
	ws.Route(ws.GET("/books").To(s.getBooks).
		Doc("Get books from the catalog.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"book"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.QueryParameter("skip", "number of books to skip").DataType("integer")).
		Param(ws.QueryParameter("limit", "number of returned books").DataType("integer")).
		Writes([]storage.Book{}))
	// Get a book
	ws.Route(ws.GET("/books/{book-id}").To(s.getBook).
		Doc("Get a book from the catalog.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"book"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("book-id", "identifier of the book").DataType("integer")).
		Writes(storage.Book{}))
	// Update a book
	ws.Route(ws.PUT("/books/{book-id}").To(s.updateBook).
		Doc("Update a book in the catalog.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"book"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("book-id", "identifier of the book").DataType("integer")).
		Reads(storage.Book{}).
		Writes(storage.Book{}))
	// Delete a book
	ws.Route(ws.DELETE("/books/{book-id}").To(s.deleteBook).
		Doc("Delete a book from the catalog.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"book"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("book-id", "identifier of the book").DataType("integer")).
		Writes(Success{}))
}

func (s *RestServer) loadDatasets(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	var req LoadRequest
	// an empty body falls back to the configured row limit
	if err := request.ReadEntity(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(response, err)
		return
	}
	// report missing sources before touching the engine
	var missing []string
	for _, path := range []string{s.Config.Data.BooksPath(), s.Config.Data.RatingsPath(), s.Config.Data.UsersPath()} {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		PageNotFound(response, fmt.Errorf("source files not found: %v", missing))
		return
	}
	start := time.Now()
	stats, err := s.Engine.Load(request.Request.Context(), req.Nrows)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	LoadDatasetSeconds.Observe(time.Since(start).Seconds())
	MatrixUsersTotal.Set(float64(stats.TotalUsers))
	MatrixBooksTotal.Set(float64(stats.TotalBooks))
	MatrixRatingsTotal.Set(float64(stats.TotalRatings))
	s.recommendCache.DeleteAll()
	Ok(response, LoadResponse{
		Status:     "success",
		Message:    "datasets loaded and model rebuilt",
		Statistics: &stats,
	})
}

func (s *RestServer) getStatus(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	status := s.Engine.Status()
	if !status.Loaded {
		Ok(response, StatusResponse{
			Status:  "not_loaded",
			Message: "datasets not loaded, call POST /api/v1/datasets/load first",
		})
		return
	}
	Ok(response, StatusResponse{
		Status:       "loaded",
		Message:      "datasets loaded and model ready",
		Users:        status.Users,
		Books:        status.Books,
		TotalRatings: status.TotalRatings,
	})
}

func (s *RestServer) getRecommendations(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	var req RecommendRequest
	if err := request.ReadEntity(&req); err != nil {
		BadRequest(response, err)
		return
	}
	if req.UserID <= 0 {
		BadRequest(response, fmt.Errorf("user_id must be positive"))
		return
	}
	if req.K <= 0 {
		req.K = s.Config.Recommend.DefaultK
	}
	if req.TopN <= 0 {
		req.TopN = s.Config.Recommend.DefaultN
	}
	cacheKey := fmt.Sprintf("user/%d/k/%d/n/%d", req.UserID, req.K, req.TopN)
	if item := s.recommendCache.Get(cacheKey); item != nil {
		Ok(response, item.Value())
		return
	}
	start := time.Now()
	recommendations, err := s.Engine.Recommend(req.UserID, req.K, req.TopN)
	switch {
	case err == nil:
	case errors.Is(err, errors.NotYetAvailable):
		BadRequest(response, err)
		return
	case errors.Is(err, errors.NotFound):
		PageNotFound(response, err)
		return
	case errors.Is(err, logics.ErrNoSimilarUsers) || errors.Is(err, logics.ErrNoNewBooks):
		// recoverable per-query condition, not a server failure
		Ok(response, RecommendResponse{
			Status:          "error",
			UserID:          req.UserID,
			Message:         err.Error(),
			Recommendations: []logics.Recommendation{},
			Parameters:      RecommendParameters{K: req.K, TopN: req.TopN},
		})
		return
	default:
		InternalServerError(response, err)
		return
	}
	UserBasedRecommendSeconds.Observe(time.Since(start).Seconds())
	resp := RecommendResponse{
		Status:               "success",
		UserID:               req.UserID,
		TotalRecommendations: len(recommendations),
		Recommendations:      recommendations,
		Parameters:           RecommendParameters{K: req.K, TopN: req.TopN},
	}
	s.recommendCache.Set(cacheKey, resp, ttlcache.DefaultTTL)
	Ok(response, resp)
}

func (s *RestServer) getUsers(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	limit, err := ParseInt(request, "limit", 20)
	if err != nil {
		BadRequest(response, err)
		return
	}
	users, err := s.Engine.Users(limit)
	if err != nil {
		if errors.Is(err, errors.NotYetAvailable) {
			BadRequest(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	status := s.Engine.Status()
	Ok(response, UsersResponse{
		Status:              "success",
		TotalAvailableUsers: status.Users,
		SampleUserIDs:       users,
		LimitRequested:      limit,
	})
}

func (s *RestServer) getHealth(_ *restful.Request, response *restful.Response) {
	Ok(response, HealthResponse{Status: "ok"})
}

func (s *RestServer) insertBook(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	var book storage.Book
	if err := request.ReadEntity(&book); err != nil {
		BadRequest(response, err)
		return
	}
	inserted, err := s.Catalog.InsertBook(book)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, inserted)
}

func (s *RestServer) getBooks(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	skip, err := ParseInt(request, "skip", 0)
	if err != nil {
		BadRequest(response, err)
		return
	}
	limit, err := ParseInt(request, "limit", 100)
	if err != nil {
		BadRequest(response, err)
		return
	}
	books, err := s.Catalog.ListBooks(skip, limit)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, books)
}

func (s *RestServer) getBook(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	id, err := strconv.ParseInt(request.PathParameter("book-id"), 10, 64)
	if err != nil {
		BadRequest(response, err)
		return
	}
	book, err := s.Catalog.GetBook(id)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, book)
}

func (s *RestServer) updateBook(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	id, err := strconv.ParseInt(request.PathParameter("book-id"), 10, 64)
	if err != nil {
		BadRequest(response, err)
		return
	}
	var book storage.Book
	if err := request.ReadEntity(&book); err != nil {
		BadRequest(response, err)
		return
	}
	updated, err := s.Catalog.UpdateBook(id, book)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, updated)
}

func (s *RestServer) deleteBook(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	id, err := strconv.ParseInt(request.PathParameter("book-id"), 10, 64)
	if err != nil {
		BadRequest(response, err)
		return
	}
	if err := s.Catalog.DeleteBook(id); err != nil {
		if errors.Is(err, errors.NotFound) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, Success{RowAffected: 1})
}

// ParseInt parses integer from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns an internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

// Text returns a plain text.
func Text(response *restful.Response, content string) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := response.Write([]byte(content)); err != nil {
		log.ResponseLogger(response).Error("failed to write text", zap.Error(err))
	}
}

func (s *RestServer) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.ResponseLogger(response).Error("unauthorized",
		zap.String("X-API-Key", apikey))
	if err := response.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
	return false
}
