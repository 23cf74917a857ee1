/*
Package config loads the configuration of an entity service process.

Values come from, in increasing precedence: built-in defaults, an optional YAML or JSON file,
a .env file in the working directory and the process environment. Environment variables use
the ENTITYSERVICE prefix and underscores for nesting:

	ENTITYSERVICE_SERVICE_NAME=posts
	ENTITYSERVICE_STORAGE_DRIVER=firestore
	ENTITYSERVICE_STORAGE_PRIMARY=<api key>
	ENTITYSERVICE_STORAGE_SECONDARY=<project id>
	ENTITYSERVICE_CACHE_TYPE=redis
	ENTITYSERVICE_CACHE_REDISADDR=localhost:6379

Entity schemas referenced by service.schemaFile may be written in YAML or JSON.
*/
package config
