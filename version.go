package turnstack

// Version is the release of the turnstack module.
const Version = "0.3.0"
