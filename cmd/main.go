package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"Temperature/config"
	"Temperature/internal/game/engine"
	"Temperature/internal/net/lobby"
	"Temperature/internal/net/transport"
	"Temperature/internal/notify"
	"Temperature/internal/storage"
	"Temperature/internal/utils"
)

func main() {
	if err := config.Load(); err != nil {
		utils.Log.Fatal("config load failed", "err", err)
	}

	store := openStore()
	session := engine.NewSession("default", store, notify.Log{})
	session.SetCPUDelay(
		msToDuration(config.C.Game.CPUDelayMinMS),
		msToDuration(config.C.Game.CPUDelayMaxMS),
	)

	cmd := "local"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	name := ""
	if len(os.Args) > 2 {
		name = os.Args[2]
	}

	switch cmd {
	case "host":
		runHost(session, name)
	case "join":
		runJoin(session, name)
	case "local":
		runLocal(session)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [host|join|local] [name]\n", os.Args[0])
		os.Exit(2)
	}
}

// openStore picks the save backend: redis, then postgres, then memory.
func openStore() storage.Store {
	if addr := config.C.Redis.Addr; addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.C.Redis.Password,
			DB:       config.C.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			utils.Log.Warn("redis unavailable, falling back to memory", "err", err)
		} else {
			utils.Log.Info("saves in redis", "addr", addr)
			return storage.NewRedisStore(rdb)
		}
	}
	if dsn := config.C.Database.DSN; dsn != "" {
		store, err := storage.NewPostgresStore(dsn)
		if err != nil {
			utils.Log.Warn("postgres unavailable, falling back to memory", "err", err)
		} else {
			utils.Log.Info("saves in postgres")
			return store
		}
	}
	return storage.NewMemoryStore()
}

func runHost(session *engine.Session, name string) {
	ctx := context.Background()
	tr := transport.NewWSHost(config.C.Server.Addr, config.C.Net.TokenSecret)
	lob := lobby.New(tr, lobby.Hooks{
		ApplyDropDraw: session.ApplyIntentDropDraw,
		ApplyShow:     session.ApplyIntentShow,
		StartNetworkGame: func(ctx context.Context, seed string, roster []engine.NetPlayer, opts engine.Options, you string) error {
			if err := session.StartNetworkGame(ctx, seed, roster, opts); err != nil {
				return err
			}
			session.SetLocalPlayer(you)
			return nil
		},
	}, notify.Log{})
	session.SetOnChange(lob.BroadcastState)

	offer, err := lob.CreateRoom(ctx, name)
	if err != nil {
		utils.Log.Fatal("create room failed", "err", err)
	}
	info := lob.Info()
	fmt.Printf("Room %s. Share this offer with the client:\n\n%s\n\n", info.RoomID, offer)
	fmt.Println("Paste the client's answer and press enter:")

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !in.Scan() {
		return
	}
	if err := lob.AcceptAnswer(ctx, strings.TrimSpace(in.Text())); err != nil {
		utils.Log.Fatal("invalid answer", "err", err)
	}
	utils.Log.Info("client connected, starting game")

	opts := engine.Options{
		RoomMode:    false,
		TargetScore: config.C.Game.TargetScore,
	}
	if err := lob.StartGame(ctx, opts); err != nil {
		utils.Log.Fatal("start game failed", "err", err)
	}
	repl(session, lob)
}

func runJoin(session *engine.Session, name string) {
	ctx := context.Background()
	tr := transport.NewWSClient()

	fmt.Println("Paste the host's offer and press enter:")
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !in.Scan() {
		return
	}

	var lob *lobby.Lobby
	lob = lobby.New(tr, lobby.Hooks{
		ReplaceState: session.ReplaceState,
		StartNetworkGame: func(ctx context.Context, seed string, roster []engine.NetPlayer, opts engine.Options, you string) error {
			if err := session.StartNetworkGame(ctx, seed, roster, opts); err != nil {
				return err
			}
			session.SetForwarder(lob, you)
			return nil
		},
	}, notify.Log{})

	answer, err := lob.JoinRoom(ctx, name, strings.TrimSpace(in.Text()))
	if err != nil {
		utils.Log.Fatal("invalid offer", "err", err)
	}
	fmt.Printf("Send this answer back to the host:\n\n%s\n\n", answer)
	repl(session, lob)
}

func runLocal(session *engine.Session) {
	ctx := context.Background()
	resumed, err := session.Resume(ctx)
	if err != nil {
		utils.Log.Warn("resume failed", "err", err)
	}
	if resumed {
		utils.Log.Info("resumed saved game")
	} else {
		opts := engine.Options{
			PlayerCount: 2,
			HumanCount:  1,
			RoomMode:    true,
			TargetScore: config.C.Game.TargetScore,
		}
		if saved, _ := session.LoadOptions(ctx); saved != nil {
			opts = *saved
		}
		if err := session.StartNewGame(ctx, opts); err != nil {
			utils.Log.Fatal("start failed", "err", err)
		}
	}
	repl(session, nil)
}

// repl is a bare table view: enough to drive a game from a terminal.
func repl(session *engine.Session, lob *lobby.Lobby) {
	ctx := context.Background()
	in := bufio.NewScanner(os.Stdin)
	printTable(session)

	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			printTable(session)
			continue
		}
		switch fields[0] {
		case "hand", "table":
			printTable(session)
		case "drop":
			doDrop(ctx, session, fields[1:])
			printTable(session)
		case "show":
			if err := session.CallShow(ctx); err != nil {
				utils.Log.Warn("show refused", "err", err)
			}
			printBoard(session)
		case "next":
			if err := session.NextRound(ctx); err != nil {
				utils.Log.Warn("next round refused", "err", err)
			}
			printTable(session)
		case "board":
			printBoard(session)
		case "quit", "exit":
			if lob != nil {
				lob.Leave()
			}
			return
		default:
			fmt.Println("commands: hand | drop <card#...> [deck|discard] | show | next | board | quit")
		}
	}
}

// doDrop takes hand positions (1-based) and an optional draw source.
func doDrop(ctx context.Context, session *engine.Session, args []string) {
	st := session.Snapshot()
	if st == nil {
		return
	}
	p := st.CurrentPlayer()
	if p == nil {
		return
	}

	src := engine.DrawDeck
	ids := make([]string, 0, len(args))
	for _, a := range args {
		if a == "deck" || a == "discard" {
			src = engine.DrawSource(a)
			continue
		}
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 || n > len(p.Hand) {
			fmt.Println("no such card:", a)
			return
		}
		ids = append(ids, p.Hand[n-1].ID)
	}
	if err := session.PerformDropAndDraw(ctx, ids, src); err != nil {
		utils.Log.Warn("drop refused", "err", err)
	}
}

func printTable(session *engine.Session) {
	st := session.Snapshot()
	if st == nil {
		fmt.Println("no game in progress")
		return
	}
	p := st.CurrentPlayer()
	fmt.Printf("round %d, phase %s, deck %d, discard top %v\n",
		st.Round, st.Phase, len(st.Deck), topOf(st))
	if p != nil {
		fmt.Printf("%s to act. hand:", p.Name)
		for i, c := range p.Hand {
			fmt.Printf(" %d:%v", i+1, c)
		}
		fmt.Println()
	}
}

func topOf(st *engine.GameState) any {
	if len(st.Discard) == 0 {
		return "-"
	}
	return st.Discard[len(st.Discard)-1]
}

func printBoard(session *engine.Session) {
	sb := session.GetScoreboard()
	if sb == nil {
		return
	}
	fmt.Printf("round %d (target %d)\n", sb.Round, sb.Target)
	for _, row := range sb.Rows {
		mark := ""
		if row.Eliminated {
			mark = " [out]"
		}
		if row.HasLast {
			fmt.Printf("  %-16s %4d (%+d)%s\n", row.Name, row.Score, row.Last, mark)
		} else {
			fmt.Printf("  %-16s %4d%s\n", row.Name, row.Score, mark)
		}
	}
	if sb.Winner != "" {
		fmt.Printf("winner: %s\n", sb.Winner)
	}
}

func msToDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
