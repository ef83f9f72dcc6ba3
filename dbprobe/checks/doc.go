// Package checks registers all built-in transports.
//
// Importing this package registers transports for every supported kind.
// For selective imports (to reduce binary size), import individual sub-packages:
//
//	import _ "github.com/BigKAA/dbprobe/dbprobe/checks/pgcheck"
//	import _ "github.com/BigKAA/dbprobe/dbprobe/checks/mongocheck"
package checks

import (
	_ "github.com/BigKAA/dbprobe/dbprobe/checks/mongocheck"
	_ "github.com/BigKAA/dbprobe/dbprobe/checks/mysqlcheck"
	_ "github.com/BigKAA/dbprobe/dbprobe/checks/pgcheck"
	_ "github.com/BigKAA/dbprobe/dbprobe/checks/redischeck"
)
