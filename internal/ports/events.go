package ports

type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe() (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}

const (
	TopicHomeScreenCreated   = "home_screen.created"
	TopicHomeScreenUpdated   = "home_screen.updated"
	TopicHomeScreenActivated = "home_screen.activated"
	TopicHomeScreenDeleted   = "home_screen.deleted"

	TopicContentItemCreated = "content_item.created"
	TopicContentItemUpdated = "content_item.updated"
	TopicContentItemDeleted = "content_item.deleted"

	TopicEpisodeCreated = "episode.created"
	TopicEpisodeUpdated = "episode.updated"
	TopicEpisodeDeleted = "episode.deleted"
)
