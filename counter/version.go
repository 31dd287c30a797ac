package counter

// Version of the service. Set during build with "-ldflags".
var Version = "0.0.0"
