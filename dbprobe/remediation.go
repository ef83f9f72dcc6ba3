package dbprobe

// genericRemediation applies to every kind unless a kind-specific list exists.
var genericRemediation = map[ErrorKind][]string{
	ConfigurationError: {
		"Check the endpoint entry in the configuration file or the environment overrides",
		"Make sure uri or host, port and db are set for this endpoint",
		"Verify timeout options are integers (milliseconds) or Go durations such as 5s",
	},
	ExtensionUnavailable: {
		`Import the transports in your binary: import _ "github.com/BigKAA/dbprobe/dbprobe/checks"`,
		"Rebuild the binary after adding the import: go build ./cmd/dbprobe",
		"Docker: rebuild the image so it contains the updated binary",
	},
	Timeout: {
		"Increase connectTimeoutMS, serverSelectionTimeoutMS or socketTimeoutMS",
		"Check network latency and stability between this host and the server",
		"Verify a firewall is not silently dropping the connection",
	},
	ConnectionRefused: {
		"Check that the database server is running",
		"Verify host and port in your configuration",
		"Docker: use host.docker.internal instead of localhost",
		"Check firewall settings",
		"Verify the server is listening on the configured port",
	},
	AuthenticationFailed: {
		"Verify the username and password are correct",
		"Ensure the user exists and has the required permissions",
		"Try connecting with the database command line client first",
	},
	TLSFailure: {
		"Verify the server certificate is valid and not expired",
		"Make sure the CA that signed the server certificate is trusted on this host",
		"Check that the host name in the URI matches the certificate",
		"Confirm the server has TLS enabled if the client requires it",
	},
	HostUnreachable: {
		"Check network connectivity to the host",
		"Docker containers: verify container networking",
		"Check the host address is correct and resolvable",
		"Test with ping or telnet to host:port",
	},
	DatabaseNotFound: {
		"Create the database if it doesn't exist",
		"Verify the database name spelling in the configuration",
		"Check the user has access to the database",
	},
	ProtocolError: {
		"Verify the endpoint is really the expected kind of database server",
		"Check that no proxy or load balancer is answering on the port",
		"Check the server logs for errors around the probe time",
	},
	GeneralError: {
		"Check the database server logs for details",
		"Verify all connection parameters",
		"Test the connection manually with the database command line client",
		"Restart the database service if needed",
	},
}

// kindRemediation overrides the generic lists for a specific kind.
var kindRemediation = map[Kind]map[ErrorKind][]string{
	KindPostgres: {
		ConnectionRefused: {
			"Check if PostgreSQL server is running",
			"Verify host and port configuration in your environment",
			"Docker: use host.docker.internal instead of localhost",
			"Check firewall settings",
			"Verify PostgreSQL is listening on the specified port (listen_addresses, port in postgresql.conf)",
		},
		AuthenticationFailed: {
			"Verify username and password are correct",
			"Check PostgreSQL pg_hba.conf configuration",
			"Ensure user exists and has proper permissions",
			"Try connecting with psql command line tool first",
		},
		DatabaseNotFound: {
			"Create the database if it doesn't exist",
			"Verify database name spelling in configuration",
			"Check if user has access to the database",
			`List available databases with \l in psql`,
		},
		TLSFailure: {
			"Check the sslmode option (disable, require, verify-ca, verify-full)",
			"Verify ssl = on in postgresql.conf when TLS is required",
			"Make sure the root certificate is available to the client",
		},
		GeneralError: {
			"Check PostgreSQL server logs for details",
			"Verify all connection parameters",
			"Test connection manually using psql",
			"Restart PostgreSQL service if needed",
		},
	},
	KindMongo: {
		ConnectionRefused: {
			"Check if mongod (or mongos) is running",
			"Verify the hosts and ports in the MongoDB URI",
			"Docker: use host.docker.internal instead of localhost",
			"Check bindIp in mongod.conf allows remote connections",
		},
		AuthenticationFailed: {
			"Verify username and password in the MongoDB URI",
			"Set authSource to the database where the user was created",
			"Try connecting with mongosh using the same URI",
		},
		Timeout: {
			"Increase serverSelectionTimeoutMS and connectTimeoutMS",
			"Atlas: add this host's IP address to the network access list",
			"For replica sets, check replicaSet matches the server configuration",
		},
		HostUnreachable: {
			"Check network connectivity to every host in the seed list",
			"mongodb+srv: verify the SRV and TXT DNS records resolve",
			"Test with ping or telnet to host:port",
		},
		TLSFailure: {
			"Check the tls option matches the server configuration",
			"Atlas requires TLS: make sure tls=true or use mongodb+srv",
			"Verify the CA file when using a private certificate authority",
		},
	},
	KindMySQL: {
		AuthenticationFailed: {
			"Verify username and password are correct",
			"Check the user is allowed from this host (user@host grants)",
			"Try connecting with the mysql command line client first",
		},
		DatabaseNotFound: {
			"Create the database with CREATE DATABASE",
			"Verify database name spelling in configuration",
			"List available databases with SHOW DATABASES",
		},
	},
	KindRedis: {
		AuthenticationFailed: {
			"Verify the password (requirepass) or ACL user credentials",
			"Redis 6+: check the ACL user is enabled and allowed to run PING",
			"Try redis-cli -a <password> PING",
		},
		ConnectionRefused: {
			"Check if redis-server is running",
			"Verify bind and protected-mode in redis.conf",
			"Docker: use host.docker.internal instead of localhost",
		},
	},
}

// Remediation returns the suggested fixes for an error kind on an endpoint
// kind. The result is never empty for a member of the taxonomy and is a
// fresh copy on every call. An empty ErrorKind yields nil.
func Remediation(kind Kind, ek ErrorKind) []string {
	if ek == "" {
		return nil
	}
	list, ok := kindRemediation[kind][ek]
	if !ok {
		list, ok = genericRemediation[ek]
	}
	if !ok {
		list = genericRemediation[GeneralError]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
