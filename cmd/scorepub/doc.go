// Command scorepub publishes one queue axis of the regatta scoring site.
//
// Usage:
//
//	scorepub AXIS            drain the queue once and exit
//	scorepub AXIS -d         poll forever
//	scorepub AXIS -l         list pending requests per entity
//	scorepub AXIS -q         exit 2 when a publisher for AXIS is running
//	scorepub enqueue AXIS ENTITY ACTIVITY [ARGUMENT]
//	scorepub config init
//
// AXIS is one of regatta, season, school, conference, sailor, or file.
package main
