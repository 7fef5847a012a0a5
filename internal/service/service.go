// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import "time"

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// HandlerTimeout bounds the synchronous handling of one webhook request.
	HandlerTimeout time.Duration
	// LFXEnvironment is the deployment environment name.
	LFXEnvironment string
}
