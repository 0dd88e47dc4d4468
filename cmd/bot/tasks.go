package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/studyhallbot/studyhall"
	"github.com/studyhallbot/studyhall/cmd/bot/dgutils"
	"github.com/studyhallbot/studyhall/sqlite"
)

func (b *Bot) handleTaskAdd(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	userID := dgutils.GetUser(m.Interaction).ID
	task, err := b.tasks.InsertTask(ctx, studyhall.TaskRecord{
		UserID:      userID,
		Description: options(m)[studyhall.DescriptionOption].StringValue(),
	})
	if err != nil {
		respondInternalError(r, err)
		return
	}
	respond(r, fmt.Sprintf("Task added successfully. Task ID: `%s`", task.ID), true)
}

func (b *Bot) handleTaskComplete(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	userID := dgutils.GetUser(m.Interaction).ID
	id := studyhall.TaskID(options(m)[studyhall.TaskIDOption].StringValue())
	task, err := b.tasks.CompleteTask(ctx, userID, id)
	if errors.Is(err, sqlite.ErrNotFound) {
		respond(r, "Task not found or already completed.", true)
		return
	} else if err != nil {
		respondInternalError(r, err)
		return
	}
	respond(r, fmt.Sprintf("Completed task: %s", task.Description), true)
}

func (b *Bot) handleTaskList(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	userID := dgutils.GetUser(m.Interaction).ID
	tasks, err := b.tasks.GetUserTasks(ctx, userID)
	if err != nil {
		respondInternalError(r, err)
		return
	}
	if len(tasks) == 0 {
		respond(r, "You have no tasks. Add one with /task_add.", true)
		return
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(tasks))
	for _, task := range tasks {
		status := "pending"
		if task.Completed {
			status = "done"
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  task.Description,
			Value: fmt.Sprintf("`%s` (%s)", task.ID, status),
		})
	}
	if err := r.RespondEmbed(&discordgo.MessageEmbed{
		Title:  "Your tasks",
		Fields: fields,
	}); err != nil {
		log.Error("failed to respond to interaction", "err", err)
	}
}
