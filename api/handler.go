// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rpcjson "github.com/luxfi/utils/json"
)

// ServiceName is the prefix of every method, as in "pledge.deposit".
const ServiceName = "pledge"

// NewHandler returns the JSON-RPC handler serving service.
func NewHandler(service *Service) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(rpcjson.NewCodec(), "application/json")
	server.RegisterCodec(rpcjson.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(service, ServiceName); err != nil {
		return nil, err
	}
	return server, nil
}

// NewMetricsHandler exposes gatherer in the Prometheus text format.
func NewMetricsHandler(gatherer metric.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
