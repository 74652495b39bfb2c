package convo

const (
	msgWelcome     = "👋 Добро пожаловать!\nВаш клиентский номер: %s"
	msgYourCode    = "🔑 Ваш клиентский номер: %s"
	msgCancelled   = "❌ Действие отменено."
	msgHelp        = "Команды:\n/mycod — ваш клиентский номер\n/track — добавить трек-номер\n/mytracks — история треков\n/photos — фото по треку\n/sendcargo — оформить груз\n/buy — заказать товар\n/manager — связаться с менеджером\n/cleartracks — очистить историю\n/cancel — отменить действие"

	msgAskTrack      = "📦 Отправьте трек-номер посылки:"
	msgInvalidTrack  = "⚠️ Неверный формат трек-номера: нужно 8–40 латинских букв и цифр. Попробуйте ещё раз:"
	msgChooseMethod  = "🚚 Выберите способ доставки (номер или название):\n%s"
	msgUnknownMethod = "⚠️ Не понял способ доставки. Выберите номер из списка:\n%s"
	msgConfirmTrack  = "Проверьте: трек %s, доставка %s.\nОтправьте «да» для подтверждения или /cancel для отмены."
	msgTrackSaved    = "✅ Трек %s (%s) сохранён.\n\n📜 История ваших треков:\n%s"
	msgNoTracks      = "📭 У вас пока нет треков."
	msgTrackHistory  = "📜 Ваша история треков:\n%s"

	msgAskRecipient     = "✍ Отправьте данные получателя: ФИО; телефон; город"
	msgRecipientOnFile  = "📨 Получатель: %s, %s, %s\n🚚 Выберите способ доставки (номер или название):\n%s"
	msgInvalidRecipient = "⚠️ Нужны три поля через «;»: ФИО; телефон; город. Попробуйте ещё раз:"
	msgConfirmShipment  = "Груз для %s (%s, %s), доставка %s.\nОтправьте «да» для подтверждения или /cancel для отмены."
	msgShipmentCreated  = "✅ Груз оформлен. Номер груза: %s\nПередайте его на склад вместе с посылками."

	msgAskPhotoTrack = "📷 Отправьте трек-номер, чтобы получить фото посылки:"
	msgNoPhotos      = "📭 Фото для этого трека пока нет."
	msgPhotoCaption  = "📷 Фото по вашему треку %s"

	msgAskOrder      = "✍ Расскажите, что хотите заказать и в каком количестве?"
	msgOrderTooShort = "⚠️ Опишите заказ подробнее, пожалуйста:"
	msgOrderSent     = "✅ Ваш запрос отправлен менеджеру."
	msgManagerSent   = "✅ Ваш запрос отправлен менеджеру."

	msgHistoryCleared = "🗑 История очищена: треков — %d, грузов — %d."

	msgStaffAskCode        = "Отправьте номер груза (например, EM03-00042-1):"
	msgStaffBadCode        = "Не удалось распознать номер груза. Формат: EM03-00042-1."
	msgStaffUnknownCode    = "Груз с номером %s не найден."
	msgStaffMediaPrompt    = "Груз %s найден. Отправьте фото, затем напишите «готово»."
	msgStaffPhotoAccepted  = "Фото принято (всего: %d). Напишите «готово», когда закончите."
	msgStaffNoPhotos       = "Фото ещё не загружены. Отправьте фото или /cancel."
	msgStaffBatchSent      = "✅ Фото отправлены клиенту, груз %s отмечен как отправленный."
	msgStaffFanoutDone     = "✅ Фото сохранено. Доставлено клиентам: %d."
	msgStaffFanoutNoClient = "Фото сохранено. Клиент с этим треком пока не зарегистрирован."

	msgBatchCaption = "📦 Ваш груз %s передан в доставку!"

	notifyNewTrack = "📦 Новый трек от клиента!\nКлиент: %s (%d)\nКод: %s\nТрек: %s (%s)\n\nИстория треков:\n%s"
	notifyNewCargo = "🚚 Новый груз %s!\nКлиент: %s (%d)\nПолучатель: %s, %s, %s\nДоставка: %s"
	notifyOrder    = "🛒 Новый заказ!\nКлиент: %s (%d)\nКод: %s\nСообщение: %s"
	notifyContact  = "📩 Запрос к менеджеру!\nКлиент: %s (%d)\nКод: %s\nСообщение: %s"
)
