package tz

import _ "embed"

//go:embed timezones.yaml
var defaultCatalog []byte
