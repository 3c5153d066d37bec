package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/peer-health-adapter/config"
	"github.com/angeloszaimis/peer-health-adapter/internal/handler"
	"github.com/angeloszaimis/peer-health-adapter/internal/metrics"
)

// setupRouter wires the endpoints. Site A's metric reports on peer B and
// site B's on peer A.
func setupRouter(metricHandler *handler.MetricHandler, collector *metrics.Collector) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/metric/site-a", metricHandler.Metric(config.PeerB)).Methods(http.MethodGet)
	router.HandleFunc("/metric/site-b", metricHandler.Metric(config.PeerA)).Methods(http.MethodGet)
	router.HandleFunc("/healthz", metricHandler.Healthz).Methods(http.MethodGet)
	router.HandleFunc("/status", metricHandler.Status).Methods(http.MethodGet)

	if collector != nil {
		router.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	}

	return router
}
