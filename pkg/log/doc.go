/*
Package log provides structured logging for contained using zerolog.

The log package wraps the zerolog library with a global logger, configurable
levels and component-specific child loggers. Every log line goes to standard
error: standard output is reserved for the container's own output stream, and
mixing the two would corrupt whatever the user pipes it into.

# Configuration

	log.Init(log.Config{
		Level:      log.ParseLevel("debug"),
		JSONOutput: false,
		Output:     os.Stderr,
	})

The default level is warn, so a healthy run prints nothing besides the
program's output. Debug level traces every engine request with its method,
path, status and duration.

# Context Loggers

	engineLog := log.WithComponent("engine")
	engineLog.Debug().Str("path", "/containers/create").Int("status", 201).Msg("engine request")

	runLog := log.WithRunID(runID)
	runLog.Warn().Err(err).Msg("leaving container for inspection")

Helpers:
  - WithComponent: component name (wire, engine, attach, runner, storage)
  - WithContainerID: engine container id
  - WithRunID: per-invocation uuid, also stamped as a container label

# Console Output

	10:30:00 DBG engine request component=engine method=POST path=/containers/create status=201
	10:30:02 WRN container left for inspection component=runner container_id=3f2a...
*/
package log
