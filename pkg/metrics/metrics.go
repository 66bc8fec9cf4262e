// Package metrics 定义服务的全部 Prometheus 指标，注册到默认 Registry。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "account_center"

// ── HTTP 指标 ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal 按方法、路由、状态码统计请求数
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration 请求耗时
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── 账户指标 ──────────────────────────────────────────────────────────────

// LoginsTotal 登录结果
// result: success, invalid_credentials, limited, error
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal 注册结果
// result: success, invalid, conflict, error
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts by result.",
	},
	[]string{"result"},
)

// UploadsTotal 头像上传结果
// result: success, invalid, error
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_picture_uploads_total",
		Help:      "Total number of profile picture uploads by result.",
	},
	[]string{"result"},
)

// 结果标签
const (
	ResultSuccess            = "success"
	ResultInvalid            = "invalid"
	ResultInvalidCredentials = "invalid_credentials"
	ResultLimited            = "limited"
	ResultConflict           = "conflict"
	ResultError              = "error"
)
