package pipeline

type EventListener func(p *Pipeline, data interface{})

const EventJobDone = "job-done"

type EventDataJobDone struct {
	Event  string  `json:"event"`
	Result *Result `json:"result,omitempty"`
	Job    string  `json:"job"`
	Error  string  `json:"error,omitempty"`
}

func (p *Pipeline) AddEventListener(event string, callback EventListener) {
	p.listenerMu.Lock()
	defer p.listenerMu.Unlock()
	p.listener[event] = append(p.listener[event], callback)
}

func (p *Pipeline) invoke(event string, data interface{}) {
	p.listenerMu.Lock()
	listeners := p.listener[event]
	p.listenerMu.Unlock()

	for _, listener := range listeners {
		go listener(p, data)
	}
}
