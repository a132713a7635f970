/*
Package logging implements the application log setup and the per-request
diagnostic stream.

Application Log

The application log uses the logrus package:

https://github.com/sirupsen/logrus

To send messages to the application log, import logrus and use its
methods. Example:

	import log "github.com/sirupsen/logrus"

	func doSomething() {
		log.Errorf("nothing to do")
	}

During startup initialization, it is possible to redirect the log output
from the default /dev/stderr to another file, to set a common prefix for
each log entry, to set the level, or to switch to JSON formatted entries.

Diagnostic Stream

Every request handled by the recorder carries a diagnostic stream, where
handlers can report problems. By default, each line written to it ends up
in the application log at ERROR level, with the fields of the request.
*/
package logging
