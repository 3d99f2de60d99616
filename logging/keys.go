package logging

const (
	// KeyAppName is the key for the application name.
	KeyAppName = `app`

	// KeyGitCommit is the key for the commit the binary was built from.
	KeyGitCommit = `git_commit`

	// KeyRuntime is the key for the Go runtime and platform.
	KeyRuntime = `runtime`

	// KeyCommitTimestamp is the key for the commit timestamp.
	KeyCommitTimestamp = `commit_timestamp`

	// KeyError is the key for an error.
	KeyError = `err`

	// KeyRequestID is the key for the request ID.
	KeyRequestID = `request_id`

	// KeyComponent is the key for the component emitting the log.
	KeyComponent = `component`

	// KeyServer is the key for a named HTTP server.
	KeyServer = `server`

	// KeyName is the key for a generic name, such as an async task or a monitor.
	KeyName = `name`

	// KeyFile is the key for a file path.
	KeyFile = `file`

	// KeyMonitor is the key for the name of an availability monitor.
	KeyMonitor = `monitor`

	// KeyEndpoint is the key for a probed endpoint.
	KeyEndpoint = `endpoint`

	// KeyStatus is the key for an availability status.
	KeyStatus = `status`

	// KeyAvailable is the key for the availability flag.
	KeyAvailable = `available`

	// KeyConsecutiveFailures is the key for the consecutive failure counter.
	KeyConsecutiveFailures = `consecutive_failures`

	// KeySubject is the key for a message subject.
	KeySubject = `subject`

	// KeySubscriber is the key for the name of a broadcast subscriber.
	KeySubscriber = `subscriber`
)
