// Package startup handles configuration loading, directory validation and
// structured startup logging for the media renditions service.
//
// Configuration is read from environment variables; directories required at
// runtime are created and probed for write access before the service begins
// serving.
package startup
