package output

import "github.com/ericogr/muxdaq/pkg/sensor"

type Output interface {
	Publish([]sensor.Report) error
	Close() error
}

// concrete outputs live in subpackages
