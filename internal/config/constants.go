package config

// Version is the application version reported in outbound requests
const Version = "0.99.04"

// UserAgent identifies this application to the remote services
const UserAgent = "OCRMill/" + Version
