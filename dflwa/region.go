package dflwa

// Region selects which AWS region a registered client targets. The zero
// choice is the local region, i.e. whatever AWS_REGION the Lambda runtime
// provides.
type Region interface {
	resolve(env Environment) string
}

type localRegion struct{}

func (localRegion) resolve(Environment) string { return "" }

// LocalRegion targets the region the function runs in (AWS_REGION).
// This is the default when no region option is given.
func LocalRegion() Region { return localRegion{} }

type primaryRegion struct{}

func (primaryRegion) resolve(env Environment) string { return env.primaryRegion() }

// PrimaryRegion targets the primary deployment region (DF_PRIMARY_REGION),
// where shared configuration and replicated tables are written.
func PrimaryRegion() Region { return primaryRegion{} }

type fixedRegion string

func (r fixedRegion) resolve(Environment) string { return string(r) }

// FixedRegion targets a specific, hard-coded region.
func FixedRegion(region string) Region { return fixedRegion(region) }
