// Package telemetry 初始化 OpenTelemetry SDK，为研究管线的 span
// 与指标提供全局 TracerProvider 和 MeterProvider。
// 遥测禁用时保持 noop 实现，不连接任何外部服务。
package telemetry
