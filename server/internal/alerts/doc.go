// Package alerts evaluates threshold rules against each recorded assessment
// and notifies Slack, Teams or generic HTTP webhooks when a rule fires for a
// patient or stops firing on their next assessment.
package alerts
