// Package config provides configuration parsing for the statehistory CLI.
//
// The configuration is stored in statehistory.json, or statehistory.yaml,
// in the working directory or at the path given with --config.
//
// # Configuration File Structure
//
//	{
//	  "history": {
//	    "maxCapacity": 100,
//	    "debounce": "500ms",
//	    "immutable": false,
//	    "paused": false
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "serve": {
//	    "addr": "localhost:9090",
//	    "metricsPath": "/metrics",
//	    "namespace": "statehistory"
//	  }
//	}
//
// Durations accept Go duration strings or a number of milliseconds.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h, err := history.New[any](nil, cfg.HistoryOptions()...)
package config
