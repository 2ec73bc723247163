package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "seller_ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "seller_cycles_total", Help: "Processing cycles completed"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "seller_orders_total", Help: "Sell orders executed"},
		[]string{"symbol"},
	)
	OrderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "seller_order_failures_total", Help: "Sell orders rejected by the gate or broker"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, CyclesTotal, OrdersTotal, OrderFailuresTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
