// Package workitem creates, comments on and assigns work items in Azure
// DevOps. Service is what the command dispatcher depends on; Client is the
// REST implementation.
package workitem
