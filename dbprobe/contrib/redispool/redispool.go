// Package redispool probes Redis through an existing *redis.Client.
package redispool

import (
	"net"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/BigKAA/dbprobe/dbprobe"
	"github.com/BigKAA/dbprobe/dbprobe/checks/redischeck"
)

// FromClient returns a prober option that checks redis endpoints through
// client, and an endpoint describing it. Host and port come from
// client.Options().Addr; when it cannot be split the whole address is the
// host and the port is 6379.
func FromClient(name string, client *redis.Client) (dbprobe.Option, dbprobe.EndpointConfig) {
	opts := client.Options()
	host, port, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		host = opts.Addr
		port = dbprobe.DefaultPorts["redis"]
	}

	ep := dbprobe.EndpointConfig{
		Name:     name,
		Kind:     dbprobe.KindRedis,
		Host:     host,
		Port:     port,
		User:     opts.Username,
		Database: strconv.Itoa(opts.DB),
	}
	return dbprobe.WithTransport(redischeck.New(redischeck.WithClient(client))), ep
}
