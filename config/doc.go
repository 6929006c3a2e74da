// Package config 提供 ResearchFlow 的配置加载：默认值、YAML 文件与
// RESEARCHFLOW_ 前缀环境变量三层合并，以及配置校验。
package config
