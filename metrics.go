/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/suparena/entityservice/errors"
)

const metricsNamespace = "entityservice"

// Metrics holds the prometheus collectors shared by every service registered on the same registry.
// A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	connects   *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Collectors already registered by another
// service are reused. A nil registerer disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "operations_total",
		Help:      "Number of CRUD operations by outcome.",
	}, []string{"service", "operation", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of CRUD operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "operation"})

	connects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "connect_attempts_total",
		Help:      "Number of adapter connect attempts by outcome.",
	}, []string{"service", "outcome"})

	var err error
	m := &Metrics{}
	if m.operations, err = register(reg, operations); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if m.connects, err = register(reg, connects); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var alreadyRegErr prometheus.AlreadyRegisteredError
	if stderrors.As(err, &alreadyRegErr) {
		if existing, ok := alreadyRegErr.ExistingCollector.(C); ok {
			return existing, nil
		}
		return c, errors.NewConfigurationError("metrics", fmt.Sprintf("prometheus conflict: %v", err))
	}
	return c, fmt.Errorf("failed to register metrics: %w", err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.IsValidationError(err):
		return "invalid"
	case errors.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// observe records one operation. Use as: defer s.metrics.observe(s.fullName, "get", time.Now(), &err).
func (m *Metrics) observe(service, operation string, start time.Time, errp *error) {
	if m == nil {
		return
	}
	var err error
	if errp != nil {
		err = *errp
	}
	m.operations.WithLabelValues(service, operation, outcome(err)).Inc()
	m.duration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) connectAttempt(service string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.connects.WithLabelValues(service, result).Inc()
}
