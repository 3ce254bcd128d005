package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/network-analytics/internal/domain"
)

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
	"Ace", "Bolt", "Crash", "Dash", "Edge", "Flash", "Glitch", "Haze", "Ion", "Jade",
	"Knight", "Luna", "Mystic", "Neon", "Orion", "Pulse", "Quantum", "Rebel", "Spark", "Turbo",
}

var clientVersions = []string{
	"1.19.4", "1.20", "1.20.1", "1.20.2", "1.20.4", "1.20.6", "1.21", "1.21.1",
}

var clientLocales = []string{
	"en_us", "en_gb", "de_de", "fr_fr", "es_es", "pt_br", "ru_ru", "zh_cn", "ja_jp", "",
}

// simPlayer is one simulated connection cycling through login/join/disconnect.
type simPlayer struct {
	id       uuid.UUID
	username string
	version  string
	locale   string
	online   bool
}

func getPlayerName(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "player-events", "Kafka topic")
	totalPlayers := flag.Int("players", 200, "Size of the simulated player pool")
	eventsPerSecond := flag.Int("rate", 20, "Events per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  🎮 Fleet Player Event Simulator")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:        %s\n", *brokers)
	fmt.Printf("  Topic:          %s\n", *topic)
	fmt.Printf("  Player pool:    %d\n", *totalPlayers)
	fmt.Printf("  Events/sec:     %d\n", *eventsPerSecond)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	// Send message helper
	sendEvent := func(event domain.PlayerEvent) {
		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("Failed to marshal event: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(event.PlayerID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	// Build the simulated player pool
	pool := make([]*simPlayer, *totalPlayers)
	for i := range pool {
		pool[i] = &simPlayer{
			id:       uuid.New(),
			username: getPlayerName(i),
			version:  clientVersions[rand.Intn(len(clientVersions))],
			locale:   clientLocales[rand.Intn(len(clientLocales))],
		}
	}

	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	interval := time.Second / time.Duration(*eventsPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	shutdown := func(reason string) {
		fmt.Printf("\n\n%s\n", reason)
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n",
			atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	var online int

	for {
		select {
		case <-sigChan:
			shutdown("Shutting down...")
			return

		case <-statsTicker.C:
			fmt.Printf("\r  Online: %d/%d, sent: %d, errors: %d",
				online, *totalPlayers,
				atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				shutdown("Duration reached, shutting down...")
				return
			}

			p := pool[rand.Intn(len(pool))]
			if !p.online {
				// Login followed by the join that carries the client tags
				p.online = true
				online++
				sendEvent(domain.PlayerEvent{
					Type:     domain.EventLogin,
					PlayerID: p.id.String(),
					Username: p.username,
				})
				sendEvent(domain.PlayerEvent{
					Type:     domain.EventJoin,
					PlayerID: p.id.String(),
					Version:  p.version,
					Locale:   p.locale,
				})
				continue
			}

			// Online players mostly stay put, 25% chance to disconnect
			if rand.Intn(100) < 25 {
				p.online = false
				online--
				sendEvent(domain.PlayerEvent{
					Type:     domain.EventDisconnect,
					PlayerID: p.id.String(),
				})
			}
		}
	}
}
