// Package entity defines domain types shared across the application.

package entity

// Notification topics used to categorize bot messages.
// Log calls can tag messages with sl.Topic(entity.TopicXxx).
const (
	TopicRedemption   = "redemption"
	TopicRegistration = "registration"
	TopicCoupon       = "coupon"
	TopicError        = "error"
	TopicSystem       = "system"
	TopicSecurity     = "security"
)

var allTopics = []string{
	TopicRedemption,
	TopicRegistration,
	TopicCoupon,
	TopicError,
	TopicSystem,
	TopicSecurity,
}

func AllTopics() []string {
	result := make([]string, len(allTopics))
	copy(result, allTopics)
	return result
}

func IsValidTopic(topic string) bool {
	for _, t := range allTopics {
		if t == topic {
			return true
		}
	}
	return false
}
