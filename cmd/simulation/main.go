package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ksred/gmedchain-web/internal/devnode"
	"github.com/ksred/gmedchain-web/internal/gmedchain"
	"github.com/ksred/gmedchain-web/internal/logging"
)

const (
	minOrders  = 15
	maxOrders  = 150
	numWorkers = 5
)

var products = []struct {
	sku  string
	name string
}{
	{"MED-001", "Surgical masks"},
	{"MED-002", "Nitrile gloves"},
	{"MED-003", "Saline solution"},
	{"MED-004", "Gauze rolls"},
	{"MED-005", "Syringes"},
}

func init() {
	logging.Setup(os.Getenv("ENV"), os.Getenv("DEBUG") == "true")
}

// routeStats tracks latency for one node endpoint
type routeStats struct {
	name       string
	mu         sync.Mutex
	durations  []time.Duration
	totalCalls int
	failures   int
}

func (rs *routeStats) add(d time.Duration, failed bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
	if failed {
		rs.failures++
	}
}

// calculate returns min, max, mean, median, p95 and p99 of the recorded
// durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient wraps the node client and times every call
type simulationClient struct {
	client *gmedchain.Client
	peers  []string
	order  []string
	stats  map[string]*routeStats
}

func newSimulationClient(ctx context.Context, baseURL string) (*simulationClient, error) {
	sc := &simulationClient{
		client: gmedchain.NewClient(gmedchain.Config{
			BaseURL:    baseURL,
			HTTPClient: &http.Client{Timeout: 10 * time.Second},
		}),
		stats: make(map[string]*routeStats),
	}
	for _, endpoint := range []string{"peers", "create-order", "orders", "my-orders",
		gmedchain.ConfirmOrder.Endpoint, gmedchain.ConfirmPickup.Endpoint, gmedchain.ShipOrder.Endpoint,
		gmedchain.DeliverOrder.Endpoint, gmedchain.ConfirmDelivery.Endpoint} {
		sc.stats[endpoint] = &routeStats{name: endpoint}
		sc.order = append(sc.order, endpoint)
	}

	start := time.Now()
	peers, err := sc.client.Peers(ctx)
	sc.stats["peers"].add(time.Since(start), err != nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch peers: %w", err)
	}
	if len(peers) == 0 {
		return nil, fmt.Errorf("node has no peers to order from")
	}
	sc.peers = peers

	return sc, nil
}

func (sc *simulationClient) createOrder(ctx context.Context, form gmedchain.OrderForm) (gmedchain.Message, error) {
	start := time.Now()
	msg, err := sc.client.CreateOrder(ctx, form)
	sc.stats["create-order"].add(time.Since(start), err != nil || !msg.OK())
	return msg, err
}

func (sc *simulationClient) updateStatus(ctx context.Context, t gmedchain.Transition, linearID string) (gmedchain.Message, error) {
	start := time.Now()
	msg, err := sc.client.UpdateStatus(ctx, t, linearID)
	sc.stats[t.Endpoint].add(time.Since(start), err != nil || !msg.OK())
	return msg, err
}

func (sc *simulationClient) orders(ctx context.Context, mine bool) ([]gmedchain.OrderState, error) {
	endpoint, fetch := "orders", sc.client.Orders
	if mine {
		endpoint, fetch = "my-orders", sc.client.MyOrders
	}
	start := time.Now()
	states, err := fetch(ctx)
	sc.stats[endpoint].add(time.Since(start), err != nil)
	return states, err
}

func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nNode API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, endpoint := range sc.order {
		stats := sc.stats[endpoint]
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Microsecond),
			max.Round(time.Microsecond),
			mean.Round(time.Microsecond),
			median.Round(time.Microsecond),
			p95.Round(time.Microsecond),
			p99.Round(time.Microsecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main starts a dev node, creates a random number of orders against it
// from concurrent workers and walks every order through its lifecycle
func main() {
	ctx := context.Background()

	baseURL, err := startNode()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start dev node")
	}

	simClient, err := newSimulationClient(ctx, baseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")
	startTime := time.Now()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			ok, failed := createOrders(ctx, workerID, targetOrders/numWorkers, simClient)
			mu.Lock()
			created += ok
			rejected += failed
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	log.Info().Int("orders_created", created).Int("orders_rejected", rejected).Msg("All orders created")

	states, err := simClient.orders(ctx, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list orders")
	}

	// Walk each order through confirm, pickup, ship, deliver and confirm
	// delivery
	completed, failedTransitions := 0, 0
	for _, state := range states {
		linearID := state.LinearID.String()
		status := state.Order.Status
		for {
			t, ok := gmedchain.NextTransition(status)
			if !ok {
				completed++
				break
			}
			msg, err := simClient.updateStatus(ctx, t, linearID)
			if err != nil || !msg.OK() {
				log.Error().Err(err).Str("linear_id", linearID).Str("endpoint", t.Endpoint).Str("message", msg.Data).Msg("Transition failed")
				failedTransitions++
				break
			}
			status = t.Status
		}
	}

	mine, err := simClient.orders(ctx, true)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list own orders")
	}

	duration := time.Since(startTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("GMEDCHAIN ORDER SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf(`
Orders created:       %d
Orders rejected:      %d
Orders in vault:      %d
Own orders:           %d
Delivery confirmed:   %d
Failed transitions:   %d
Duration:             %v
`, created, rejected, len(states), len(mine), completed, failedTransitions, duration.Round(time.Millisecond))

	log.Info().
		Int("orders", len(states)).
		Int("completed", completed).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// createOrders submits numOrders random orders. About one in ten carries
// a zero price and is expected to be rejected by the node.
func createOrders(ctx context.Context, workerID, numOrders int, sc *simulationClient) (created, rejected int) {
	for i := 0; i < numOrders; i++ {
		product := products[rand.Intn(len(products))]
		price := decimal.NewFromInt(int64(rand.Intn(1000) + 1)).Div(decimal.NewFromInt(100))
		if rand.Intn(10) == 0 {
			price = decimal.Zero
		}

		form := gmedchain.OrderForm{
			Counterparty:  sc.peers[rand.Intn(len(sc.peers))],
			SKU:           product.sku,
			Price:         price,
			Name:          product.name,
			Qty:           strconv.Itoa(rand.Intn(100) + 1),
			ShippingCost:  strconv.Itoa(rand.Intn(20)),
			BuyerAddress:  fmt.Sprintf("Ward %d, General Hospital", workerID),
			SellerAddress: "1 Supply Way",
		}

		msg, err := sc.createOrder(ctx, form)
		if err != nil || !msg.OK() {
			rejected++
			log.Warn().Err(err).Int("worker_id", workerID).Str("sku", form.SKU).Str("price", form.Price.String()).Str("message", strings.TrimSpace(msg.Data)).Msg("Order rejected")
			continue
		}

		created++
		log.Debug().Int("worker_id", workerID).Str("sku", form.SKU).Str("counterparty", form.Counterparty).Msg("Order created")

		time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
	}
	return created, rejected
}

// startNode serves a fresh in-memory dev node on a loopback port and
// returns its API root
func startNode() (string, error) {
	node, err := devnode.Open(fmt.Sprintf("file:sim-%s?mode=memory&cache=shared", uuid.New()), devnode.DefaultConfig())
	if err != nil {
		return "", err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}

	go func() {
		if err := http.Serve(ln, devnode.NewRouter(node)); err != nil {
			log.Fatal().Err(err).Msg("Dev node stopped")
		}
	}()

	return fmt.Sprintf("http://%s/api/gmedchain/", ln.Addr()), nil
}
