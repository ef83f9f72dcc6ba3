// dbprobe checks whether MongoDB, PostgreSQL, MySQL and Redis endpoints are
// reachable and explains failures with an error kind and remediation steps.
//
// Usage:
//
//	# Probe every configured endpoint
//	dbprobe check --config dbprobe.yaml
//
//	# Probe one endpoint configured through the environment
//	PG_HOST=db.local PG_USER=app dbprobe check postgres --output json
//
//	# Serve probes and metrics over HTTP
//	dbprobe serve --addr :8080
package main

func main() {
	Execute()
}
