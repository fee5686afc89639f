package lattice

// Version is the release of the module, overridden at link time:
//
//	go build -ldflags "-X github.com/aretw0/lattice.Version=v1.2.3"
var Version = "dev"
