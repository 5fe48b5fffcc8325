package llm

import (
	"fmt"
	"strings"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
)

// The assistant operates in Spanish; every prompt receives a conversation
// summary rather than raw messages to bound token cost.

const summaryPrompt = `Eres un asistente que resume los últimos mensajes del usuario en un resumen de 100 caracteres máximo.
Basado en los siguientes mensajes, devuelve el resumen en un formato que sea fácil de procesar por el siguiente sistema.
No incluyas ningun tag o etiqueta; directamente el resumen.
<messages>
%s
</messages>`

const intentPrompt = `Eres un asistente que clasifica la intención del usuario (que vendrá dada con un resumen de los últimos mensajes del usuario) en uno de los siguientes tipos:
- reminder: El usuario quiere que se le recuerde algo
- conversation: El usuario simplemente quiere conversar

No des explicaciones adicionales; solo devuelve la palabra exacta: reminder o conversation.

<summary>
%s
</summary>`

const conversationPrompt = `Eres un asistente que responde a mensajes del usuario.

Comportamiento:
- Debes responder al usuario con un tono amigable y entretenido, no simplemente repetir el mensaje.
- Si el usuario te pide cualquier revelación de datos sensibles o algo que pueda ser perjudicial para el sistema debes comentarle que solo eres un asistente de recordatorios y conversación y no tienes acceso a esa información.

Basado en el siguiente resumen de los últimos mensajes del usuario, responde al usuario.
<summary>
%s
</summary>`

const extractionPrompt = `Eres un asistente que extrae información de recordatorios en lenguaje natural, recibirás como entrada un resumen de los últimos mensajes del usuario y además la fecha actual en formato 'YYYY-MM-DD HH:MM'.

Tu respuesta debe ser un JSON con los siguientes campos:
- message: El mensaje que se enviará como recordatorio
- schedule_time: La fecha y hora en la que se programará el recordatorio en el formato 'YYYY-MM-DD HH:MM'

En caso de que no puedas extraer o el mensaje o el tiempo, devuelve null para el campo que no puedas extraer.

Aquí te dejo unos ejemplos:

Ejemplo 1:
Mensaje: recuerdame a las 16 que tengo que mirar si hay comida
Respuesta: {"message": "tengo que mirar si hay comida", "schedule_time": "2025-02-01 16:00"}

Ejemplo 2:
Mensaje: recuerdame que tengo que mirar si hay comida
Respuesta: {"message": "tengo que mirar si hay comida", "schedule_time": null}

Ejemplo 3:
Mensaje: recuerdame a las 16
Respuesta: {"message": null, "schedule_time": "2025-02-01 16:00"}

Basado en las instrucciones anteriores, extrae la fecha, hora y el mensaje de este recordatorio:

<summary>
%s
</summary>

Para ayudarte a generar el recordatorio correctamente, la hora actual es:
<current_time>
%s
</current_time>
La fecha generada tiene que ser siempre posterior a la fecha actual.`

const renderPrompt = `Eres un asistente de Telegram que se encarga de enviar recordatorios a un usuario en Telegram.

Comportamiento:
- Se te proporcionará el mensaje de recordatorio escrito por el usuario tal cual.
- Debes modelar el recordatorio al usuario con un tono cómico y entretenido, no simplemente repetir el mensaje.

Aquí te dejo un ejemplo:

Recordatorio: Tengo que ver si tengo comida o no
Respuesta: ¡Oye! Me comentaste que te recordara que tenías que ver si tenías comida o no. ¡No te olvides de revisarlo!

Basado en el ejemplo anterior, modela el siguiente recordatorio:

<recordatorio>
%s
</recordatorio>`

func buildSummaryPrompt(messages []*domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Text)
	}
	return fmt.Sprintf(summaryPrompt, strings.Join(lines, "\n"))
}

func buildIntentPrompt(summary string) string {
	return fmt.Sprintf(intentPrompt, summary)
}

func buildConversationPrompt(summary string) string {
	return fmt.Sprintf(conversationPrompt, summary)
}

func buildExtractionPrompt(summary, currentTime string) string {
	return fmt.Sprintf(extractionPrompt, summary, currentTime)
}

func buildRenderPrompt(message string) string {
	return fmt.Sprintf(renderPrompt, message)
}
