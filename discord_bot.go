package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

var (
	discordMutex     sync.Mutex
	discordSession   *discordgo.Session
	targetChannelIDs = make(map[string]struct{})
)

// parseChannelIDs splits the comma-separated DISCORD_CHANNEL_IDS value,
// dropping blanks and surrounding whitespace.
func parseChannelIDs(channelIDsStr string) map[string]struct{} {
	channels := make(map[string]struct{})
	for _, id := range strings.Split(channelIDsStr, ",") {
		trimmedID := strings.TrimSpace(id)
		if trimmedID != "" {
			channels[trimmedID] = struct{}{}
		}
	}
	return channels
}

// botChannels returns the published channel set. The map is never mutated
// after publication, so ranging over the snapshot is safe.
func botChannels() map[string]struct{} {
	discordMutex.Lock()
	defer discordMutex.Unlock()
	return targetChannelIDs
}

func publishChannels(channels map[string]struct{}) {
	discordMutex.Lock()
	targetChannelIDs = channels
	discordMutex.Unlock()
}

func startDiscordBot(ctx context.Context) {

	botToken := os.Getenv("DISCORD_BOT_TOKEN")

	channelIDsStr := os.Getenv("DISCORD_CHANNEL_IDS")

	if botToken == "" {
		log.Println("⚠️ [Discord Bot] DISCORD_BOT_TOKEN not set. Bot will not start.")
		return
	}
	if channelIDsStr == "" {
		log.Println("⚠️ [Discord Bot] DISCORD_CHANNEL_IDS not set. Bot will not start.")
		return
	}

	channels := parseChannelIDs(channelIDsStr)
	if len(channels) == 0 {
		log.Println("⚠️ [Discord Bot] No valid channel IDs found in DISCORD_CHANNEL_IDS. Bot will not start.")
		return
	}
	publishChannels(channels)

	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		log.Printf("❌ [Discord Bot] Error creating Discord session: %v", err)
		return
	}
	defer dg.Close()

	dg.AddHandler(ready)
	dg.AddHandler(messageCreate)
	dg.Identify.Intents = discordgo.IntentsGuildMessages

	err = dg.Open()
	if err != nil {
		log.Printf("❌ [Discord Bot] Error opening connection: %v", err)
		return
	}

	discordMutex.Lock()
	discordSession = dg
	discordMutex.Unlock()

	log.Println("🤖 [Discord Bot] Bot is running. Waiting for shutdown signal from main app...")

	<-ctx.Done()

	discordMutex.Lock()
	discordSession = nil
	discordMutex.Unlock()

	log.Println("🔌 [Discord Bot] Shutdown signal received. Closing Discord connection...")
}

func ready(s *discordgo.Session, event *discordgo.Ready) {
	log.Println("✅ [Discord Bot] Bot is connected and ready!")
	log.Printf("   -> Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)

	channels := botChannels()
	var listeningIDs []string
	for id := range channels {
		listeningIDs = append(listeningIDs, id)
	}
	log.Printf("   -> Listening on %d Channel(s): %s", len(channels), strings.Join(listeningIDs, ", "))
}

// notifyRefresh announces a successful store rebuild to the configured
// channels. A no-op while the bot is not connected. Sends block on
// Discord's API, so callers must not hold storeMutex; refreshStore runs
// this in its own goroutine.
func notifyRefresh(recordCount int) {
	discordMutex.Lock()
	dg := discordSession
	discordMutex.Unlock()
	if dg == nil {
		return
	}

	msg := fmt.Sprintf("📊 Song data refreshed: %d performances in the last %d years.", recordCount, retainedYears)
	if stats, err := songStats(orderByFrequency); err == nil && len(stats) > 0 {
		msg += fmt.Sprintf(" Most performed: **%s** (%d times).", stats[0].Name, stats[0].Count)
	}

	for id := range botChannels() {
		if _, err := dg.ChannelMessageSend(id, msg); err != nil {
			log.Printf("❌ [Discord Bot] Could not send refresh notice to channel %s: %v", id, err)
		}
	}
}

// songLookupTerm extracts the search term from a "!song <name>" message.
// The command word must stand alone: "!songfoo" is not a lookup.
func songLookupTerm(content string) (string, bool) {
	rest, ok := strings.CutPrefix(content, "!song")
	if !ok {
		return "", false
	}
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return "", false
	}
	term := strings.TrimSpace(rest)
	if term == "" {
		return "", false
	}
	return term, true
}

// messageCreate answers "!song <name>" lookups with the performance count
// and most recent dates for the best match.
func messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {

	if m.Author.ID == s.State.User.ID {
		return
	}

	if _, ok := botChannels()[m.ChannelID]; !ok {
		return
	}

	term, ok := songLookupTerm(m.Content)
	if !ok {
		return
	}

	log.Printf("🗣️  [Discord] Song lookup from '%s': \"%s\"", m.Author.Username, term)

	reply, err := buildSongReply(term)
	if err != nil {
		log.Printf("❌ [Discord] Lookup for %q failed: %v", term, err)
		reply = "Sorry, the song lookup failed. Try again later."
	}

	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		log.Printf("❌ [Discord Bot] Could not reply in channel %s: %v", m.ChannelID, err)
	}
}

// maxReplyDates caps how many dates a bot reply lists before trailing off.
const maxReplyDates = 5

func buildSongReply(term string) (string, error) {
	if err := refreshIfStale(); err != nil {
		return "", err
	}

	results, err := searchSongs(term)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No performances of “%s” in the last %d years.", term, retainedYears), nil
	}

	name := matchedNames(results)[0]
	detail, err := songDetail(name)
	if err != nil {
		return "", err
	}

	var dates []string
	for i, rec := range detail {
		if i >= maxReplyDates {
			dates = append(dates, "…")
			break
		}
		dates = append(dates, formatChineseDate(rec.PerformedOn))
	}

	return fmt.Sprintf("🎤 **%s** was performed %d time(s). Recent dates: %s",
		name, len(detail), strings.Join(dates, ", ")), nil
}
