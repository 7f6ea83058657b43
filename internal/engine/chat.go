package engine

// ChatBuffer is a fixed-capacity ring of the most recent chat messages of a lobby.
// Once full, each append overwrites the oldest message.
type ChatBuffer struct {
	buf  []ChatMessage
	head int // index of the oldest message
	n    int
}

func NewChatBuffer(capacity int) *ChatBuffer {
	if capacity < 1 {
		capacity = DefaultChatHistory
	}
	return &ChatBuffer{buf: make([]ChatMessage, capacity)}
}

func (c *ChatBuffer) Append(m ChatMessage) {
	if c.n < len(c.buf) {
		c.buf[(c.head+c.n)%len(c.buf)] = m
		c.n++
		return
	}
	c.buf[c.head] = m
	c.head = (c.head + 1) % len(c.buf)
}

// Messages returns the buffered messages oldest first.
func (c *ChatBuffer) Messages() []ChatMessage {
	out := make([]ChatMessage, 0, c.n)
	for i := 0; i < c.n; i++ {
		out = append(out, c.buf[(c.head+i)%len(c.buf)])
	}
	return out
}

func (c *ChatBuffer) Len() int { return c.n }

func (c *ChatBuffer) Cap() int { return len(c.buf) }
