package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	AMQP            Category = "AMQP"
	S3              Category = "S3"
	SearchIndex     Category = "SearchIndex"
	RoomDirectory   Category = "RoomDirectory"
	MongoDB         Category = "MongoDB"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Core units
	Routing  SubCategory = "Routing"
	Indexing SubCategory = "Indexing"
	Search   SubCategory = "Search"

	// Broker
	Publish  SubCategory = "Publish"
	Consume  SubCategory = "Consume"
	Listener SubCategory = "Listener"

	Audit SubCategory = "Audit"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
	Room         ExtraKey = "Room"
	Song         ExtraKey = "Song"
	Bucket       ExtraKey = "Bucket"
	ObjectKey    ExtraKey = "ObjectKey"
	SearchTerm   ExtraKey = "SearchTerm"
	QueryMode    ExtraKey = "QueryMode"
	Results      ExtraKey = "Results"
)
