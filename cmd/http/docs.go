// Package main runs the jukebox HTTP server.
//
// @title SingSphere Jukebox API
// @version 1.0
// @description Routes songs to voice rooms, indexes uploads and searches the catalog.
//
// @BasePath /
// @schemes http https
//
// @tag.name Playback
// @tag.description Routing songs to rooms and the play history
//
// @tag.name Songs
// @tag.description Catalog search and upload indexing
//
// @tag.name Listeners
// @tag.description Websocket room feeds
package main
