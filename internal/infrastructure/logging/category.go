package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Registry        Category = "Registry"
	Transport       Category = "Transport"
	Persistence     Category = "Persistence"
	RabbitMQ        Category = "RabbitMQ"
	Mongo           Category = "Mongo"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
)

const (
	// General
	Startup         SubCategory = "Startup"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Registry
	RoomLifecycle SubCategory = "RoomLifecycle"
	Membership    SubCategory = "Membership"
	Timers        SubCategory = "Timers"

	// Transport
	Connection SubCategory = "Connection"

	// Persistence
	Snapshot SubCategory = "Snapshot"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RoomId       ExtraKey = "RoomId"
	ConnectionId ExtraKey = "ConnectionId"
	EventType    ExtraKey = "EventType"
	ErrorMessage ExtraKey = "ErrorMessage"
)
