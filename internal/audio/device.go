package audio

import (
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// DeviceStream drives a live full-duplex portaudio device. Input and
// output callbacks run on portaudio's own audio thread; ReadBlock and
// WriteBlock hand blocks across via buffered channels so the caller (the
// CLI's synchronous ProcessBlock loop) never touches the callback
// directly, preserving the core simulator's single-threaded contract.
type DeviceStream struct {
	stream *portaudio.Stream

	mu     sync.Mutex
	closed bool

	in  chan []float32
	out chan []float32
}

// errStreamClosed is returned once the stream has been closed and no more
// blocks will arrive.
var errStreamClosed = errors.New("audio: device stream closed")

// OpenDeviceStream initializes portaudio and opens the default full-duplex
// device at sampleRate Hz, mono in and out, moving blockSize samples per
// callback.
func OpenDeviceStream(sampleRate float64, blockSize int) (*DeviceStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	d := &DeviceStream{
		in:  make(chan []float32, 4),
		out: make(chan []float32, 4),
	}

	stream, err := portaudio.OpenDefaultStream(1, 1, sampleRate, blockSize, d.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	d.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}

	return d, nil
}

// callback runs on portaudio's real-time thread: it publishes the captured
// input block and takes the oldest queued output block. It never
// blocks - a full/empty channel just means a dropped or silent block,
// preferable to stalling the audio thread.
func (d *DeviceStream) callback(in, out []float32) {
	captured := make([]float32, len(in))
	copy(captured, in)
	select {
	case d.in <- captured:
	default:
	}

	select {
	case block := <-d.out:
		copy(out, block)
	default:
		for i := range out {
			out[i] = 0
		}
	}
}

// ReadBlock blocks until portaudio's callback has delivered a captured
// input block, or the stream is closed.
func (d *DeviceStream) ReadBlock(samples []float32) (int, error) {
	block, ok := <-d.in
	if !ok {
		return 0, errStreamClosed
	}
	n := copy(samples, block)
	return n, nil
}

// WriteBlock queues samples for the next output callback.
func (d *DeviceStream) WriteBlock(samples []float32) error {
	block := make([]float32, len(samples))
	copy(block, samples)

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return errStreamClosed
	}

	select {
	case d.out <- block:
	default:
	}
	return nil
}

// Close stops and closes the portaudio stream and releases the library.
func (d *DeviceStream) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	// Stop blocks until the callback thread has returned, so it is safe to
	// close d.in afterward without racing the callback's send.
	err := d.stream.Stop()
	close(d.in)

	if cerr := d.stream.Close(); err == nil {
		err = cerr
	}
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
