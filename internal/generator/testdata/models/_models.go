// Package models 的共享声明，生成时跳过。
package models
